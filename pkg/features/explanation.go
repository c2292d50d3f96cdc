package features

import "fmt"

// Entry explains a single slot.
type Entry struct {
	Name           string  `json:"name"`
	Group          Group   `json:"group"`
	Value          float64 `json:"value"`
	Available      bool    `json:"available"`
	Interpretation string  `json:"interpretation"`
}

// Explanation lists one entry per slot, in slot order.
type Explanation []Entry

// Lookup finds the entry for a feature name.
func (e Explanation) Lookup(name string) (Entry, bool) {
	i, ok := index[name]
	if !ok || i >= len(e) {
		return Entry{}, false
	}
	return e[i], true
}

// Unavailable returns the names of every slot that holds the sentinel.
func (e Explanation) Unavailable() []string {
	var out []string
	for _, entry := range e {
		if !entry.Available {
			out = append(out, entry.Name)
		}
	}
	return out
}

// Builder writes a slot and its explanation in one call so the two cannot
// drift apart. The zero value is not usable; call NewBuilder.
type Builder struct {
	vec Vector
	exp Explanation
}

func NewBuilder() *Builder {
	b := &Builder{
		vec: NewVector(),
		exp: make(Explanation, len(canonical)),
	}
	for i, f := range canonical {
		b.exp[i] = Entry{
			Name:           f.Name,
			Group:          f.Group,
			Value:          Sentinel,
			Interpretation: "unavailable: not computed",
		}
	}
	return b
}

func (b *Builder) slot(name string) int {
	i, ok := index[name]
	if !ok {
		panic(fmt.Sprintf("features: unknown feature %q", name))
	}
	return i
}

// Set records a measured value.
func (b *Builder) Set(name string, value float64, interpretation string) {
	i := b.slot(name)
	b.vec[i] = value
	b.exp[i].Value = value
	b.exp[i].Available = true
	b.exp[i].Interpretation = interpretation
}

// Flag records a 0/1 signal. suspiciousWhen is the polarity that counts
// against the URL.
func (b *Builder) Flag(name string, on bool, label string, suspiciousWhen bool) {
	value, answer := 0.0, "no"
	if on {
		value, answer = 1, "yes"
	}
	verdict := "ok"
	if on == suspiciousWhen {
		verdict = "suspicious"
	}
	b.Set(name, value, fmt.Sprintf("%s: %s -> %s", label, answer, verdict))
}

// Unavailable resets a slot to the sentinel and records why.
func (b *Builder) Unavailable(name, reason string) {
	i := b.slot(name)
	b.vec[i] = Sentinel
	b.exp[i].Value = Sentinel
	b.exp[i].Available = false
	b.exp[i].Interpretation = "unavailable: " + reason
}

// UnavailableGroup marks every slot of g as unavailable.
func (b *Builder) UnavailableGroup(g Group, reason string) {
	for _, name := range InGroup(g) {
		b.Unavailable(name, reason)
	}
}

// Build returns copies of the vector and explanation.
func (b *Builder) Build() (Vector, Explanation) {
	exp := make(Explanation, len(b.exp))
	copy(exp, b.exp)
	return b.vec.Clone(), exp
}
