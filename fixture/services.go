package fixture

import "strings"

func serviceA() *Subgraph {
	return &Subgraph{
		name: "service_a",
		sdl:  sdlServiceA,
		query: map[string]any{
			"goodbye": "See ya!",
			"posts": []map[string]any{
				{
					"__typename": "Post",
					"id":         1,
					"title":      "title_1",
					"text":       funnyText(1),
					"files":      []map[string]any{fileNode(1)},
					"author":     nil,
				},
				{
					"__typename": "Post",
					"id":         2,
					"title":      "title_2",
					"text":       funnyText(2),
					"files":      []map[string]any{fileNode(2), fileNode(3)},
					"author":     nil,
				},
				{
					"__typename": "Post",
					"id":         3,
					"title":      "title_3",
					"text":       funnyText(3),
					"files":      nil,
					"author":     nil,
				},
				{
					"__typename": "Post",
					"id":         4,
					"title":      "title_4",
					"text":       funnyText(4),
					"files":      []map[string]any{},
					"author":     user(1001),
				},
			},
		},
	}
}

// The helpers below build the key-only references one subgraph holds to an entity
// another subgraph owns.
func funnyText(id int) map[string]any {
	return map[string]any{"__typename": "FunnyText", "id": id}
}

func fileNode(id int) map[string]any {
	return map[string]any{"__typename": "FileNode", "id": id}
}

func user(id int) map[string]any {
	return map[string]any{"__typename": "User", "id": id}
}

var users = []map[string]any{
	{"id": 5, "primaryEmail": "name_5@gmail.com", "age": 17},
	{"id": 1001, "primaryEmail": "frank@frank.com", "age": 17},
}

func serviceB() *Subgraph {
	files := []map[string]any{
		{"id": 1, "name": "file_1"},
		{"id": 2, "name": "file_2"},
		{"id": 3, "name": "file_3"},
	}
	texts := []map[string]any{
		{"id": 1, "body": "funny_text_1"},
		{"id": 2, "body": "funny_text_2"},
		{"id": 3, "body": "funny_text_3"},
		{"id": 4, "body": "funny_text_4"},
	}

	return &Subgraph{
		name: "service_b",
		sdl:  sdlServiceB,
		mutation: map[string]any{
			"funnyMutation": map[string]any{"__typename": "FunnyMutationResult", "result": "Funny"},
		},
		resolvers: map[string]entityResolver{
			"FileNode":  byKey(files, "id"),
			"FunnyText": byKey(texts, "id"),
			"User":      byKey(users, "id", "primaryEmail"),
		},
	}
}

func serviceC() *Subgraph {
	return &Subgraph{
		name: "service_c",
		sdl:  sdlServiceC,
		query: map[string]any{
			"articles": []map[string]any{
				{"__typename": "Article", "id": 1, "text": "some text", "author": articleAuthor(5)},
			},
			// age is provided here, so the gateway never asks service_b for it
			"articlesWithAuthorAgeProvide": []map[string]any{
				{
					"__typename": "ArticleThatProvideAuthorAge",
					"id":         1,
					"text":       "some text",
					"author":     map[string]any{"__typename": "User", "id": 5, "age": 18},
				},
			},
		},
		resolvers: map[string]entityResolver{
			// uppercaseEmail requires primaryEmail, which the gateway fetches from
			// service_b and passes along in the representation.
			"User": func(rep map[string]any) map[string]any {
				email := key(rep, "primaryEmail")
				if email == "" {
					known := byKey(users, "id")(rep)
					if known == nil {
						return nil
					}
					email = key(known, "primaryEmail")
				}
				return map[string]any{
					"id":             rep["id"],
					"uppercaseEmail": strings.ToUpper(email),
				}
			},
		},
	}
}

func articleAuthor(id int) map[string]any {
	author := user(id)
	if known := byKey(users, "id")(author); known != nil {
		author["uppercaseEmail"] = strings.ToUpper(key(known, "primaryEmail"))
	}
	return author
}

func serviceD() *Subgraph {
	return &Subgraph{
		name: "service_d",
		sdl:  sdlServiceD,
		resolvers: map[string]entityResolver{
			"FunnyText": func(rep map[string]any) map[string]any {
				var id int
				switch v := rep["id"].(type) {
				case float64:
					id = int(v)
				case int:
					id = v
				default:
					return nil
				}
				return map[string]any{"id": id, "color": id + 2}
			},
		},
	}
}
