package plugin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectScriptIntoHead(t *testing.T) {
	src := []byte(`<!DOCTYPE html><html><head><title>x</title></head><body><p>hi</p></body></html>`)

	out, err := InjectScript(src, "http://localhost:35729/livereload.js", "reload")
	require.NoError(t, err)

	doc := string(out)
	assert.Contains(t, doc, `<script id="reload" src="http://localhost:35729/livereload.js" async=""></script></head>`)
	assert.Contains(t, doc, "<p>hi</p>")
}

func TestInjectScriptIsIdempotent(t *testing.T) {
	src := []byte(`<html><head></head><body></body></html>`)
	once, err := InjectScript(src, "/livereload.js", "reload")
	require.NoError(t, err)
	twice, err := InjectScript(once, "/livereload.js", "reload")
	require.NoError(t, err)

	assert.Equal(t, string(once), string(twice))
	assert.Equal(t, 1, strings.Count(string(twice), `id="reload"`))
}

func TestInjectScriptFragment(t *testing.T) {
	out, err := InjectScript([]byte(`<div>fragment</div>`), "/livereload.js", "reload")
	require.NoError(t, err)
	assert.Contains(t, string(out), `<head><script id="reload"`)
	assert.Contains(t, string(out), "<div>fragment</div>")
}
