package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSurrealSelect(t *testing.T) {
	q := Query{
		Type: "product",
		Filters: []Filter{
			Eq("published", true),
			RefTo("company", "c1"),
			Gte("price", 10),
			Exists("deleted", false),
		},
		Search: &Search{Fields: []string{"name", "description"}, Term: " Bolt "},
		Order:  []Order{{Field: "price", Desc: true}, {Field: "name"}},
		Offset: 20,
		Limit:  10,
	}

	sql, vars := buildSurrealSelect(q)

	assert.Equal(t,
		"SELECT * FROM type::table($tb) WHERE _type = $type"+
			" AND published = $p0"+
			" AND (company._ref = $p1 OR company._ref CONTAINS $p1)"+
			" AND price >= $p2"+
			" AND deleted = NONE"+
			" AND (string::contains(string::lowercase(<string> (name ?? '')), $term)"+
			" OR string::contains(string::lowercase(<string> (description ?? '')), $term))"+
			" ORDER BY price DESC, name ASC LIMIT $limit START $start",
		sql)
	assert.Equal(t, "document", vars["tb"])
	assert.Equal(t, "product", vars["type"])
	assert.Equal(t, true, vars["p0"])
	assert.Equal(t, "c1", vars["p1"])
	assert.Equal(t, "bolt", vars["term"])
	assert.Equal(t, 10, vars["limit"])
	assert.Equal(t, 20, vars["start"])
	assert.NotContains(t, vars, "p3", "exists takes no parameter")
}

func TestBuildSurrealWhere_Minimal(t *testing.T) {
	where, vars := buildSurrealWhere(Query{Type: "category", Search: &Search{Fields: []string{"title"}}})
	assert.Equal(t, "_type = $type", where)
	assert.Len(t, vars, 1)
}
