package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryBuilder(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		var qb QueryBuilder
		qb.Add("SELECT stuff FROM thing WHERE id = $? AND foo = $?", 3, "bar")
		qb.Add("AND (baz = $?)", true)

		assert.Equal(t, "SELECT stuff FROM thing WHERE id = $1 AND foo = $2\nAND (baz = $3)\n", qb.String())
		assert.Equal(t, []interface{}{3, "bar", true}, qb.Args())
	})
	t.Run("pagination", func(t *testing.T) {
		var qb QueryBuilder
		qb.Add("SELECT stuff FROM thing WHERE id = $?", 3)
		qb.AddPagination(20, 40)

		assert.Equal(t, "SELECT stuff FROM thing WHERE id = $1\nLIMIT $2 OFFSET $3\n", qb.String())
		assert.Equal(t, []any{3, 20, 40}, qb.Args())
	})
	t.Run("no limit means no pagination", func(t *testing.T) {
		var qb QueryBuilder
		qb.Add("SELECT stuff FROM thing")
		qb.AddPagination(0, 40)

		assert.Equal(t, "SELECT stuff FROM thing\n", qb.String())
		assert.Empty(t, qb.Args())
	})
	t.Run("too few arguments", func(t *testing.T) {
		var qb QueryBuilder
		assert.Panics(t, func() {
			qb.Add("HELLO $? $? $?", 1, 2)
		})
	})
	t.Run("too many arguments", func(t *testing.T) {
		var qb QueryBuilder
		assert.Panics(t, func() {
			qb.Add("HELLO $? $? $?", 1, 2, 3, 4)
		})
	})
}
