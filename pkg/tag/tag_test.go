package tag

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		soul := New("Soul")
		assert.Equal(t, Tag(0x536f756c), soul)
		assert.Equal(t, "Soul", soul.String())
	})

	t.Run("Padding", func(t *testing.T) {
		tests := []struct {
			in   string
			want string
		}{
			{"ab", "ab  "},
			{"abc", "abc "},
			{"bitm", "bitm"},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, New(tt.in).String(), "input %q", tt.in)
		}
		assert.Equal(t, New("ab  "), New("ab"))
	})

	t.Run("NullForms", func(t *testing.T) {
		assert.Equal(t, Null, New(""))
		assert.Equal(t, Null, FromInt(0xFFFFFFFF))
		assert.Equal(t, Null, FromInt32(-1))
		assert.True(t, New("").IsNull())
		assert.Equal(t, "", Null.String())
	})
}

func TestFromChars(t *testing.T) {
	t.Run("NulBecomesSpace", func(t *testing.T) {
		got := FromChars([]byte{'s', 'n', 'd', 0})
		assert.Equal(t, New("snd "), got)
		assert.Equal(t, "snd ", got.String())
	})

	t.Run("ShortArray", func(t *testing.T) {
		assert.Equal(t, New("hs  "), FromChars([]byte("hs")))
	})
}

func TestString(t *testing.T) {
	// Leading zero bytes come from small raw integers.
	assert.Equal(t, "ab", FromInt(0x00006162).String())
	assert.Equal(t, "", FromInt(0).String())
}

func TestCompare(t *testing.T) {
	a, b := New("aaaa"), New("aaab")
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(New("aaaa")))
	assert.True(t, New("zzzz").Compare(New("bitm")) > 0)
}

func TestParse(t *testing.T) {
	for _, s := range []string{"", "null", "none", "****"} {
		got, err := Parse(s)
		require.NoError(t, err)
		assert.True(t, got.IsNull(), "input %q", s)
	}

	got, err := Parse("hlm")
	require.NoError(t, err)
	assert.Equal(t, "hlm ", got.String())

	_, err = Parse("toolong")
	assert.True(t, errors.Is(err, ErrInvalidTag))
}

func TestText(t *testing.T) {
	text, err := New("rmop").MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "rmop", string(text))

	text, err = Null.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "null", string(text))

	var parsed Tag
	require.NoError(t, parsed.UnmarshalText([]byte("play")))
	assert.Equal(t, New("play"), parsed)
	require.NoError(t, parsed.UnmarshalText([]byte("null")))
	assert.Equal(t, Null, parsed)
}
