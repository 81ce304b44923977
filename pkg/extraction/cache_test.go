package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmap/mapboard/internal/model"
)

type mapCache struct {
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, kind, key string) ([]byte, error) {
	return c.data[kind+"/"+key], nil
}

func (c *mapCache) Set(_ context.Context, kind, key string, data []byte, _ time.Duration) error {
	c.data[kind+"/"+key] = data
	return nil
}

func (c *mapCache) DeleteExpired(context.Context) (int, error) { return 0, nil }
func (c *mapCache) Migrate(context.Context) error              { return nil }
func (c *mapCache) Close() error                               { return nil }

type countingService struct {
	parses  int
	refines int
	result  Result
}

func (s *countingService) Parse(context.Context, ParseRequest) (*Result, error) {
	s.parses++
	res := s.result
	return &res, nil
}

func (s *countingService) Refine(context.Context, RefineRequest) (*Result, error) {
	s.refines++
	res := s.result
	return &res, nil
}

func TestCachedParseReusesResult(t *testing.T) {
	t.Parallel()

	inner := &countingService{result: Result{
		Parsed: model.ParsedListing{Title: "Crate", Description: "d"},
	}}
	svc := NewCached(inner, newMapCache(), time.Hour)

	req := ParseRequest{PostType: model.ExchangeOffer, RawText: "medium dog crate"}

	first, err := svc.Parse(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Parse(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.parses, "second call served from cache")
	assert.Equal(t, first, second)
}

func TestCachedParseKeyedByTypeAndText(t *testing.T) {
	t.Parallel()

	inner := &countingService{result: Result{Parsed: model.ParsedListing{Title: "t", Description: "d"}}}
	svc := NewCached(inner, newMapCache(), time.Hour)

	ctx := context.Background()
	_, err := svc.Parse(ctx, ParseRequest{PostType: model.ExchangeOffer, RawText: "crate"})
	require.NoError(t, err)
	_, err = svc.Parse(ctx, ParseRequest{PostType: model.ExchangeRequest, RawText: "crate"})
	require.NoError(t, err)
	_, err = svc.Parse(ctx, ParseRequest{PostType: model.ExchangeOffer, RawText: "leash"})
	require.NoError(t, err)

	assert.Equal(t, 3, inner.parses, "distinct type/text pairs miss independently")
}

func TestCachedRefineNeverCached(t *testing.T) {
	t.Parallel()

	inner := &countingService{result: Result{Parsed: model.ParsedListing{Title: "t", Description: "d"}}}
	svc := NewCached(inner, newMapCache(), time.Hour)

	req := RefineRequest{RawText: "x", Answers: []Answer{{Field: "brand", Value: "Acme"}}}
	ctx := context.Background()

	_, err := svc.Refine(ctx, req)
	require.NoError(t, err)
	_, err = svc.Refine(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.refines)
}
