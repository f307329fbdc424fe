package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSha256Hex(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sha256Hex(""))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Sha256Hex("abc"))
}

func TestStableStringify_SortsObjectKeys(t *testing.T) {
	a := map[string]any{"b": 1.0, "a": map[string]any{"z": true, "y": nil}}
	b := map[string]any{"a": map[string]any{"y": nil, "z": true}, "b": 1.0}

	sa, err := StableStringify(a)
	require.NoError(t, err)
	sb, err := StableStringify(b)
	require.NoError(t, err)

	assert.Equal(t, `{"a":{"y":null,"z":true},"b":1}`, sa)
	assert.Equal(t, sa, sb)
}

func TestStableStringify_KeepsArrayOrder(t *testing.T) {
	s, err := StableStringify([]any{3.0, 1.0, 2.0})
	require.NoError(t, err)
	assert.Equal(t, `[3,1,2]`, s)
}

func TestStableStringify_NoHTMLEscaping(t *testing.T) {
	s, err := StableStringify(map[string]any{"expr": "a < b && c > d"})
	require.NoError(t, err)
	assert.Equal(t, `{"expr":"a < b && c > d"}`, s)
}

func TestCanonicalize_NonStringKeyMap(t *testing.T) {
	m1 := map[int]string{10: "ten", 2: "two", 1: "one"}
	m2 := map[int]string{1: "one", 10: "ten", 2: "two"}

	s1, err := StableStringify(m1)
	require.NoError(t, err)
	s2, err := StableStringify(m2)
	require.NoError(t, err)

	assert.Equal(t, `[["1","one"],["10","ten"],["2","two"]]`, s1)
	assert.Equal(t, s1, s2)
}

func TestCanonicalize_Set(t *testing.T) {
	s1 := NewSet("rivers", "lakes", "coast")
	s2 := NewSet[string]()
	for _, v := range []string{"coast", "rivers", "lakes"} {
		s2.Add(v)
	}
	require.True(t, s2.Has("lakes"))
	require.Equal(t, 3, s2.Len())

	a, err := StableStringify(map[string]any{"tags": s1})
	require.NoError(t, err)
	b, err := StableStringify(map[string]any{"tags": s2})
	require.NoError(t, err)

	assert.Equal(t, `{"tags":["coast","lakes","rivers"]}`, a)
	assert.Equal(t, a, b)
}

func TestCanonicalize_Structs(t *testing.T) {
	type inner struct {
		B int    `json:"b"`
		A string `json:"a"`
	}
	s, err := StableStringify(&inner{B: 2, A: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":2}`, s)

	s, err = StableStringify((*inner)(nil))
	require.NoError(t, err)
	assert.Equal(t, `null`, s)
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(map[string]any{"x": 1.0, "y": []any{"a"}})
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"y": []any{"a"}, "x": 1.0})
	require.NoError(t, err)
	c, err := Fingerprint(map[string]any{"y": []any{"a"}, "x": 2.0})
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	empty, err := Fingerprint(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, Sha256Hex("{}"), empty)
}

func TestFingerprint_Unencodable(t *testing.T) {
	_, err := Fingerprint(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}
