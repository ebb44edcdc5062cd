package region

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/learnhub/learnhub-go/internal/locale"
)

type fixedPref string

func (p fixedPref) Region() string { return string(p) }

func TestResolve_ExplicitWins(t *testing.T) {
	r := NewResolver("", "", fixedPref("global"), "global")
	assert.Equal(t, CN, r.Resolve("cn", locale.EN))
	assert.Equal(t, Global, r.Resolve("global", locale.ZH))
}

func TestResolve_ExplicitMustBeExact(t *testing.T) {
	r := NewResolver("", "", nil, "global")
	assert.Equal(t, CN, r.Resolve("china", locale.ZH), "invalid explicit falls through to locale")
}

func TestResolve_Hostname(t *testing.T) {
	r := NewResolver("global=app.learnhub.io;cn=app.learnhub.com.cn", "app.learnhub.io", nil, "cn")
	assert.Equal(t, Global, r.Resolve("", locale.ZH))

	r = NewResolver("", "study.example.cn", nil, "global")
	assert.Equal(t, CN, r.Resolve("", locale.EN), ".cn suffix heuristic")

	r = NewResolver("global=app.learnhub.io", "", fixedPref(""), "global")
	assert.Equal(t, CN, r.Resolve("", locale.ZH), "empty hostname skips host matching")
}

func TestResolve_StoredPreference(t *testing.T) {
	r := NewResolver("", "", fixedPref("cn"), "global")
	assert.Equal(t, CN, r.Resolve("", locale.EN))
}

func TestResolve_LocaleFallback(t *testing.T) {
	r := NewResolver("", "", fixedPref(""), "global")
	assert.Equal(t, CN, r.Resolve("", locale.ZH))
	assert.Equal(t, Global, r.Resolve("", locale.EN))
}

func TestResolve_ConfiguredDefault(t *testing.T) {
	r := NewResolver("", "", nil, "cn")
	assert.Equal(t, CN, r.Resolve("", ""))

	r = NewResolver("", "", nil, "bogus")
	assert.Equal(t, Global, r.Resolve("", ""))
}

func TestParseRegionHosts(t *testing.T) {
	hosts := parseRegionHosts("global=A.com , b.com;cn=c.CN;nope=d.com;;cn")
	assert.Equal(t, []string{"a.com", "b.com"}, hosts[Global])
	assert.Equal(t, []string{"c.cn"}, hosts[CN])
}
