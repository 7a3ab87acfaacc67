// Package solrstream streams whole collections out of a SolrCloud cluster,
// one export stream per shard.
//
// # Per-shard iteration
//
//	client, _ := solrstream.New(ctx, solrstream.WithCloud("zk1:2181", "http://solr1:8983/solr"))
//	defer client.Close()
//
//	shards, _ := client.Shards(ctx, "books")
//	endpoint, _ := shards[0].Endpoint()
//
//	q := solrstream.NewQuery("*:*").
//	    AddFilterQuery("type:book", "year:[2000 TO *]").
//	    Set("fl", "id,title").
//	    Set("sort", "id asc")
//	it := client.Iterator(endpoint, q, 1, 0)
//	defer it.Close()
//	for t, err := range it.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(t.String("id"))
//	}
//
// # Whole-collection export
//
//	report, err := client.Export(ctx, "books", q, func(shard string, t *solrstream.Tuple) error {
//	    return enc.Encode(t.Fields)
//	})
package solrstream
