// Package manifest loads whyml manifests and caches the parsed documents.
//
// # Manifest Format
//
// Manifests are YAML or JSON mappings of section name to value:
//
//	extends: ../layouts/base.yaml
//	dependencies:
//	  - ../shared/styles.yaml
//	metadata:
//	  title: "{{ site.name }}"
//	  description: Landing page
//	variables:
//	  site:
//	    name: Example
//	structure:
//	  div:
//	    class: page
//	    children:
//	      - h1: "{{ site.name }}"
//
// # Usage
//
//	loader := manifest.NewLoader(manifest.Options{
//	    Sources: []domain.Source{fetcher.NewFileSource(), fetcher.NewHTTPSource(fetcher.ClientOptions{})},
//	    Cache:   cache.DefaultMemoryOptions(),
//	})
//	doc, err := loader.Load(ctx, "pages/home.yaml", domain.LoadOptions{})
//
// References in extends and dependencies are canonicalized relative to the
// document that declares them.
//
// # Error Handling
//
// Load returns the typed errors of the domain package: NotFoundError,
// NetworkError and ParseError. Package sentinels describe parse causes:
//   - ErrEmptyReference: an empty source id or reference
//   - ErrUnsupportedScheme: a URL scheme no source serves
//   - ErrEmptyDocument: the manifest has no content
//   - ErrNotMapping: the manifest root is not a mapping
//   - ErrMultipleDocuments: a YAML stream with several documents
package manifest
