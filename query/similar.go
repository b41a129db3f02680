package query

// BuildSimilar compiles a k-NN-only query over a source vector, excluding the source
// document itself by its authoritative id, used by the /document/:id/similar endpoint.
func BuildSimilar(vector []float32, k int, excludeDocumentID string) map[string]interface{} {
	return map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{{
					"knn": map[string]interface{}{
						"embedding": map[string]interface{}{"vector": vector, "k": k},
					},
				}},
				"must_not": []map[string]interface{}{
					term("mongo_id", excludeDocumentID),
				},
			},
		},
		"_source": []string{"mongo_id"},
	}
}

// BuildCollaborators compiles a nested-aggregation query that buckets co-authoring
// author ids on papers where authorID appears, excluding authorID itself, with an
// unsorted size-1 top_hits sub-aggregation supplying one name/affiliation per
// collaborator (taken from any one of their author entries, not the most recent).
func BuildCollaborators(authorID string, topN int) map[string]interface{} {
	return map[string]interface{}{
		"size": 0,
		"query": nested("authors", term("authors.author_id", authorID)),
		"aggs": map[string]interface{}{
			"papers": map[string]interface{}{
				"filter": nested("authors", term("authors.author_id", authorID)),
			},
			"collaborators": map[string]interface{}{
				"nested": map[string]interface{}{"path": "authors"},
				"aggs": map[string]interface{}{
					"excluding_self": map[string]interface{}{
						"filter": map[string]interface{}{
							"bool": map[string]interface{}{
								"must_not": []map[string]interface{}{term("authors.author_id", authorID)},
							},
						},
						"aggs": map[string]interface{}{
							"by_author": map[string]interface{}{
								"terms": map[string]interface{}{"field": "authors.author_id", "size": topN},
								"aggs": map[string]interface{}{
									"info": map[string]interface{}{
										"top_hits": map[string]interface{}{"size": 1},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}
