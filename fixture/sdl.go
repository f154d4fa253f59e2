package fixture

const sdlServiceA = `
extend type Query {
	goodbye: String
	posts: [Post]
}

type Post {
	id: Int!
	title: String
	text: FunnyText
	files: [FileNode]
	author: User
}

extend type FileNode @key(fields: "id") {
	id: Int! @external
}

extend type FunnyText @key(fields: "id") {
	id: Int! @external
}

extend type User @key(fields: "id") {
	id: Int! @external
}
`

const sdlServiceB = `
extend type Mutation {
	funnyMutation: FunnyMutationResult
}

type FunnyMutationResult {
	result: String
}

type FileNode @key(fields: "id") {
	id: Int!
	name: String
}

type FunnyText @key(fields: "id") {
	id: Int!
	body: String
}

type User @key(fields: "primaryEmail") @key(fields: "id") {
	id: Int!
	primaryEmail: String
	age: Int
}
`

const sdlServiceC = `
extend type Query {
	articles: [Article]
	articlesWithAuthorAgeProvide: [ArticleThatProvideAuthorAge]
}

type Article {
	id: Int!
	text: String
	author: User
}

type ArticleThatProvideAuthorAge {
	id: Int!
	text: String
	author: User @provides(fields: "age")
}

extend type User @key(fields: "id") {
	id: Int! @external
	primaryEmail: String @external
	age: Int @external
	uppercaseEmail: String @requires(fields: "primaryEmail")
}
`

const sdlServiceD = `
extend type FunnyText @key(fields: "id") {
	id: Int! @external
	color: Int
}
`
