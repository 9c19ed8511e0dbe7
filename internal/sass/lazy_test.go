package sass

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCompiler struct {
	compiled int
	closed   bool
}

func (c *countingCompiler) Compile(path string, source string, opts Options) (Result, error) {
	c.compiled++
	return Result{CSS: source}, nil
}

func (c *countingCompiler) Close() error {
	c.closed = true
	return nil
}

func TestLazyStartsOnce(t *testing.T) {
	starts := 0
	inner := &countingCompiler{}
	c := Lazy(func() (Compiler, error) {
		starts++
		return inner, nil
	})

	_, err := c.Compile("a.scss", "a{}", Options{})
	require.NoError(t, err)
	res, err := c.Compile("b.scss", "b{}", Options{})
	require.NoError(t, err)

	assert.Equal(t, "b{}", res.CSS)
	assert.Equal(t, 1, starts)
	assert.Equal(t, 2, inner.compiled)
	require.NoError(t, c.Close())
	assert.True(t, inner.closed)
}

func TestLazyNeverStarted(t *testing.T) {
	c := Lazy(func() (Compiler, error) {
		t.Fatal("should not start")
		return nil, nil
	})
	assert.NoError(t, c.Close())

	// after Close the engine can no longer start
	_, err := c.Compile("a.scss", "", Options{})
	assert.Error(t, err)
}

func TestLazyStartError(t *testing.T) {
	c := Lazy(func() (Compiler, error) {
		return nil, errors.New("sass: executable not found")
	})
	_, err := c.Compile("a.scss", "", Options{})
	assert.EqualError(t, err, "sass: executable not found")
	_, err = c.Compile("a.scss", "", Options{})
	assert.EqualError(t, err, "sass: executable not found")
}
