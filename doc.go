// Package esquery builds Elasticsearch DSL searches incrementally.
//
// Callers chain filter, condition, sort and pagination calls on a Collection
// without ever shaping the request document themselves. Each call merges one
// clause into a nested bool tree; the tree is rendered when the search runs.
//
//	client, _ := esquery.New(esquery.WithAddresses("http://localhost:9200"))
//
//	type User struct {
//	    ID     string `es:"id,id"`
//	    Name   string `es:"name,analyzed"`
//	    Status string `es:"status"`
//	    Age    int    `es:"age"`
//	}
//	// *User implements esquery.Model (DocID, DocType, SourceDocument).
//
//	decode, _ := esquery.StructDecoder[*User]()
//	users, _ := esquery.NewCollection(client, decode, esquery.WithIndex("users"))
//
//	active, _ := users.
//	    Exact("status", "active").
//	    Exact("role", []string{"admin", "owner"}, esquery.Cond(esquery.Or)).
//	    Range("age", esquery.RangeBounds{GTE: 18}).
//	    Sort("age", "desc").
//	    All(ctx, esquery.ResultsPerPage(20))
//
// Conditions without the explicit_ prefix nest into one bool group; explicit
// conditions open top-level and/or/not groups. A call without a condition
// reuses the previous one.
package esquery
