package opensearchengine

// indexMapping is the full index settings+mappings body sent to CreateIndex. It is kept
// as a literal JSON string, mirroring how the engine's own mapping API expects it, rather
// than built up field by field — the mapping almost never changes shape at runtime.
const indexMapping = `{
	"settings": {
		"index": {
			"knn": true,
			"knn.algo_param.ef_search": 300,
			"number_of_shards": 3,
			"number_of_replicas": 1,
			"max_ngram_diff": 2,
			"max_shingle_diff": 2
		},
		"similarity": {
			"custom_bm25": {
				"type": "BM25",
				"k1": 1.8,
				"b": 0.6
			}
		},
		"analysis": {
			"filter": {
				"ngram_filter": {
					"type": "ngram",
					"min_gram": 2,
					"max_gram": 4
				},
				"shingle_filter": {
					"type": "shingle",
					"min_shingle_size": 2,
					"max_shingle_size": 3,
					"output_unigrams": true
				}
			},
			"analyzer": {
				"ngram_analyzer": {
					"type": "custom",
					"tokenizer": "standard",
					"filter": ["lowercase", "ngram_filter"]
				},
				"shingle_analyzer": {
					"type": "custom",
					"tokenizer": "standard",
					"filter": ["lowercase", "shingle_filter"]
				}
			}
		}
	},
	"mappings": {
		"properties": {
			"mongo_id": {
				"type": "keyword",
				"doc_values": true
			},
			"title": {
				"type": "text",
				"analyzer": "english",
				"similarity": "custom_bm25",
				"fields": {
					"exact": {"type": "keyword"},
					"shingles": {
						"type": "text",
						"analyzer": "shingle_analyzer"
					}
				}
			},
			"abstract": {
				"type": "text",
				"analyzer": "english",
				"similarity": "custom_bm25",
				"fields": {
					"shingles": {
						"type": "text",
						"analyzer": "shingle_analyzer"
					}
				}
			},
			"authors": {
				"type": "nested",
				"properties": {
					"author_id": {"type": "keyword"},
					"author_name": {
						"type": "text",
						"analyzer": "standard",
						"fields": {
							"keyword": {"type": "keyword"},
							"ngram": {"type": "text", "analyzer": "ngram_analyzer"}
						}
					},
					"author_name_variants": {
						"type": "text",
						"analyzer": "standard",
						"fields": {
							"keyword": {"type": "keyword"},
							"ngram": {"type": "text", "analyzer": "ngram_analyzer"}
						}
					},
					"author_position": {"type": "integer"},
					"author_affiliation": {
						"type": "text",
						"fields": {"keyword": {"type": "keyword"}}
					},
					"author_email": {"type": "keyword"},
					"has_matched_profile": {"type": "boolean"}
				}
			},
			"author_names": {
				"type": "text",
				"analyzer": "standard",
				"fields": {
					"keyword": {"type": "keyword"},
					"ngram": {"type": "text", "analyzer": "ngram_analyzer"}
				}
			},
			"author_name_variants": {
				"type": "text",
				"analyzer": "standard",
				"fields": {
					"keyword": {"type": "keyword"},
					"ngram": {"type": "text", "analyzer": "ngram_analyzer"}
				}
			},
			"publication_year": {"type": "integer"},
			"field_associated": {
				"type": "text",
				"analyzer": "standard",
				"fields": {
					"keyword": {"type": "keyword"},
					"ngram": {"type": "text", "analyzer": "ngram_analyzer"}
				}
			},
			"document_type": {"type": "keyword"},
			"subject_area": {
				"type": "text",
				"analyzer": "standard",
				"fields": {
					"keyword": {"type": "keyword"},
					"ngram": {"type": "text", "analyzer": "ngram_analyzer"}
				}
			},
			"subject_area_count": {"type": "integer"},
			"citation_count": {"type": "integer"},
			"reference_count": {"type": "integer"},
			"embedding": {
				"type": "knn_vector",
				"dimension": 768,
				"method": {
					"name": "hnsw",
					"space_type": "cosinesimil",
					"engine": "faiss",
					"parameters": {
						"ef_construction": 512,
						"m": 32
					}
				}
			}
		}
	}
}`
