package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/symcached/symcached/pkg/symver"
)

func TestParseIDWithAndWithoutGrouping(t *testing.T) {
	plain, err := ParseID("abcdef0123456789abcdef0123456789")
	require.NoError(t, err)

	grouped, err := ParseID("ABCDEF01-2345-6789-ABCD-EF0123456789")
	require.NoError(t, err)

	assert.Equal(t, plain, grouped)
	assert.Equal(t, "ABCDEF0123456789ABCDEF0123456789", plain.String())
}

func TestParseIDRejectsWrongLength(t *testing.T) {
	_, err := ParseID("abcd")
	assert.Error(t, err)
}

func TestNewKeyRejectsPathyNames(t *testing.T) {
	id, err := ParseID("abcdef0123456789abcdef0123456789")
	require.NoError(t, err)

	_, err = NewKey(symver.MustParse("3.1.0"), "../etc/passwd", id, 1)
	assert.Error(t, err)

	_, err = NewKey(symver.MustParse("3.1.0"), "a.pdb", id, 1)
	assert.NoError(t, err)
}

func TestKeyIDAndAgeMatchesSpecLayout(t *testing.T) {
	id, err := ParseID("ABCDEF0123456789ABCDEF0123456789")
	require.NoError(t, err)

	key, err := NewKey(symver.MustParse("3.1.0"), "ntdll.pdb", id, 1)
	require.NoError(t, err)

	assert.Equal(t, "ABCDEF0123456789ABCDEF01234567891", key.IDAndAge())
}

func TestKeyEqualityByComponent(t *testing.T) {
	id, err := ParseID("abcdef0123456789abcdef0123456789")
	require.NoError(t, err)

	a, err := NewKey(symver.MustParse("3.1.0"), "a.pdb", id, 1)
	require.NoError(t, err)
	b, err := NewKey(symver.MustParse("3.1.0"), "a.pdb", id, 1)
	require.NoError(t, err)
	c, err := NewKey(symver.MustParse("3.1.0"), "a.pdb", id, 2)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	set := map[Key]bool{a: true}
	assert.True(t, set[b])
	assert.False(t, set[c])
}
