package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAll(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{
		"base.yaml": "variables:\n  site: Acme\n",
		"a.yaml":    "extends: base.yaml\nconfig:\n  name: \"{{site}} A\"\n",
		"b.yaml":    "extends: base.yaml\nconfig:\n  name: \"{{site}} B\"\n",
	})
	p := newTestPipeline(t, nil)
	sources := []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml")}

	results, err := p.ResolveAll(context.Background(), sources, domain.ResolveOptions{SkipValidation: true}, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i, want := range []string{"Acme A", "Acme B"} {
		require.NoError(t, results[i].Error)
		assert.Equal(t, sources[i], results[i].Source)
		name, _ := results[i].Result.Document.Tree.Lookup("config", "name")
		assert.Equal(t, want, name)
	}
}

func TestResolveAll_ContinueOnError(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{
		"good.yaml":   "config:\n  ok: yes\n",
		"broken.yaml": "extends: nowhere.yaml\n",
	})
	p := newTestPipeline(t, nil)
	sources := []string{
		filepath.Join(dir, "broken.yaml"),
		filepath.Join(dir, "good.yaml"),
	}

	results, err := p.ResolveAll(context.Background(), sources, domain.ResolveOptions{SkipValidation: true}, BatchOptions{ContinueOnError: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1/2 failures")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Error, domain.ErrNotFound)
	assert.NoError(t, results[1].Error)
	assert.NotNil(t, results[1].Result)
}

func TestResolveAll_StopsOnFirstError(t *testing.T) {
	dir := testutil.ManifestTree(t, map[string]string{
		"broken.yaml": "extends: nowhere.yaml\n",
	})
	cfg := testConfig(t)
	cfg.Resolve.Workers = 1
	p := newTestPipeline(t, cfg)

	sources := []string{filepath.Join(dir, "broken.yaml")}
	for i := 0; i < 5; i++ {
		sources = append(sources, filepath.Join(dir, "broken.yaml"))
	}

	results, err := p.ResolveAll(context.Background(), sources, domain.ResolveOptions{}, BatchOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, results, len(sources))
	for _, r := range results {
		assert.Error(t, r.Error)
	}
}

func TestResolveAll_Empty(t *testing.T) {
	p := newTestPipeline(t, nil)
	results, err := p.ResolveAll(context.Background(), nil, domain.ResolveOptions{}, BatchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
