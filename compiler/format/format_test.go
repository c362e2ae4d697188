package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysdialect/sysir/compiler/front"
)

func TestFormatCanonical(t *testing.T) {
	ctx := context.Background()

	u, err := front.Parse(ctx, "t", []byte(`# comment
{:link-name "add2" :parameter-count 2
 :instructions [(prim 0 s32) (bind 0 0) (bind 1 0) (bind 2 0) (add 2 0 1) (return 2)]}`))
	require.NoError(t, err)

	b, err := Format(ctx, nil, u)
	require.NoError(t, err)

	exp := `{:link-name "add2"
 :parameter-count 2
 :instructions
 [(prim 0 s32)
  (bind 0 0)
  (bind 1 0)
  (bind 2 0)
  (add 2 0 1)
  (return 2)]}
`
	assert.Equal(t, exp, string(b))
}

func TestFormatRoundTrip(t *testing.T) {
	ctx := context.Background()

	text := []byte(`{:link-name "f" :parameter-count 0 :instructions [(constant 0 "s") (call 0 g 1 2 3 4) :mark (return 0)]}`)

	u, err := front.Parse(ctx, "t", text)
	require.NoError(t, err)

	b, err := Format(ctx, nil, u)
	require.NoError(t, err)

	// formatting the formatted text is a fixed point
	u2, err := front.Parse(ctx, "t", b)
	require.NoError(t, err)

	b2, err := Format(ctx, nil, u2)
	require.NoError(t, err)

	assert.Equal(t, string(b), string(b2))
}
