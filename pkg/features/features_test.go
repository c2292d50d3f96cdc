package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalListIsConsistent(t *testing.T) {
	names := Names()
	require.Len(t, names, Count())

	seen := make(map[string]bool)
	for i, n := range names {
		assert.False(t, seen[n], "duplicate feature %s", n)
		seen[n] = true

		idx, ok := Index(n)
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}
	assert.True(t, SameSchema(names))
}

func TestSameSchema(t *testing.T) {
	names := Names()

	swapped := Names()
	swapped[0], swapped[1] = swapped[1], swapped[0]

	tests := []struct {
		name  string
		input []string
		want  bool
	}{
		{"identical", names, true},
		{"truncated", names[:len(names)-1], false},
		{"padded", append(Names(), "extra"), false},
		{"reordered", swapped, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameSchema(tt.input))
		})
	}
}

func TestEveryGroupHasFeatures(t *testing.T) {
	for _, g := range []Group{GroupLexical, GroupProtocol, GroupDNS, GroupWhois, GroupTLS, GroupContent} {
		assert.NotEmpty(t, InGroup(g), "group %s", g)
	}
}

func TestNewBuilderStartsAtSentinel(t *testing.T) {
	vec, exp := NewBuilder().Build()

	require.Len(t, vec, Count())
	require.Len(t, exp, Count())
	for i, v := range vec {
		assert.Equal(t, Sentinel, v)
		assert.False(t, exp[i].Available)
		assert.Equal(t, Names()[i], exp[i].Name)
	}
}

func TestBuilderKeepsVectorAndExplanationInStep(t *testing.T) {
	b := NewBuilder()
	b.Set(URLLength, 42, "42 characters")
	b.Flag(IPLiteralHost, true, "uses IP address host", true)
	b.Flag(HTTPSScheme, true, "uses https", false)
	b.Unavailable(DNSResolvable, "timeout")

	vec, exp := b.Build()

	assert.Equal(t, 42.0, vec.Get(URLLength))
	assert.Equal(t, 1.0, vec.Get(IPLiteralHost))
	assert.Equal(t, Sentinel, vec.Get(DNSResolvable))

	ip, ok := exp.Lookup(IPLiteralHost)
	require.True(t, ok)
	assert.True(t, ip.Available)
	assert.Equal(t, "uses IP address host: yes -> suspicious", ip.Interpretation)

	https, _ := exp.Lookup(HTTPSScheme)
	assert.Equal(t, "uses https: yes -> ok", https.Interpretation)

	dns, _ := exp.Lookup(DNSResolvable)
	assert.False(t, dns.Available)
	assert.Equal(t, "unavailable: timeout", dns.Interpretation)

	for i := range vec {
		assert.Equal(t, vec[i], exp[i].Value, "slot %d", i)
	}
}

func TestUnavailableGroup(t *testing.T) {
	b := NewBuilder()
	for _, n := range InGroup(GroupContent) {
		b.Set(n, 1, "set")
	}
	b.UnavailableGroup(GroupContent, "fetch failed")

	vec, exp := b.Build()
	for _, n := range InGroup(GroupContent) {
		assert.Equal(t, Sentinel, vec.Get(n))
	}
	assert.ElementsMatch(t, Names(), exp.Unavailable())
}

func TestBuilderPanicsOnUnknownFeature(t *testing.T) {
	assert.Panics(t, func() { NewBuilder().Set("nope", 1, "") })
}

func TestBuildReturnsCopies(t *testing.T) {
	b := NewBuilder()
	vec, _ := b.Build()
	vec[0] = 99

	again, _ := b.Build()
	assert.Equal(t, Sentinel, again[0])
}

func TestVectorValidate(t *testing.T) {
	good := NewVector()

	nan := NewVector()
	nan[3] = math.NaN()

	inf := NewVector()
	inf[0] = math.Inf(1)

	tests := []struct {
		name    string
		vec     Vector
		wantErr error
	}{
		{"valid", good, nil},
		{"empty", Vector{}, ErrVectorLength},
		{"short", good[:5], ErrVectorLength},
		{"nan", nan, ErrVectorValue},
		{"inf", inf, ErrVectorValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vec.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVectorGetUnknownName(t *testing.T) {
	assert.Equal(t, Sentinel, NewVector().Get("unknown"))
	assert.False(t, NewVector().Available(URLLength))
}
