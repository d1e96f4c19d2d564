package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeoliero/nexochat/internal/entity"
	"github.com/mbeoliero/nexochat/internal/pager"
)

func TestSearchPeople_AppliesLastQuery(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	people := []*entity.Person{{Username: "ana", FirstName: "Ana"}, {Username: "anabel"}, {Username: "bob"}}

	p := pager.New(func(ctx context.Context, key string, page int) (*entity.Page[*entity.Person], error) {
		mu.Lock()
		queries = append(queries, key)
		mu.Unlock()

		var out []*entity.Person
		for _, person := range people {
			if strings.HasPrefix(person.Username, key) {
				out = append(out, person)
			}
		}
		return &entity.Page[*entity.Person]{Content: out, Number: page, Last: true}, nil
	}, pager.WithName[*entity.Person]("people"))

	var out bytes.Buffer
	err := searchPeople(context.Background(), strings.NewReader("a\nan\n ana \n"), &out, p, time.Hour)
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{"ana"}, queries)
	mu.Unlock()
	assert.Contains(t, out.String(), `-- "ana": 2 found`)
	assert.Contains(t, out.String(), "anabel")
	assert.NotContains(t, out.String(), "bob")
}

func TestSearchPeople_EmptyInput(t *testing.T) {
	p := pager.New(func(ctx context.Context, key string, page int) (*entity.Page[*entity.Person], error) {
		t.Fatalf("unexpected fetch for %q", key)
		return nil, nil
	})

	var out bytes.Buffer
	require.NoError(t, searchPeople(context.Background(), strings.NewReader(""), &out, p, time.Hour))
	assert.Empty(t, out.String())
}
