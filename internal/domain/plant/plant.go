// Package plant holds the entity resolution value objects: live dataset
// entities, alias table records, and resolution results.
package plant

// Entity is one (code, name) pair from the live deck snapshot. Codes are
// authoritative only here, never in the alias table.
type Entity struct {
	code int
	name string
}

// NewEntity creates a live dataset entity.
func NewEntity(code int, name string) Entity {
	return Entity{code: code, name: name}
}

// Code returns the dataset numeric code.
func (e Entity) Code() int { return e.code }

// Name returns the dataset-native name.
func (e Entity) Name() string { return e.name }

// AliasRecord is one curated alias table row. Reference data only: its code
// is trusted solely when the same code exists in the live snapshot.
type AliasRecord struct {
	code     int
	deckName string
	fullName string
}

// NewAliasRecord creates an alias table record.
func NewAliasRecord(code int, deckName, fullName string) AliasRecord {
	return AliasRecord{code: code, deckName: deckName, fullName: fullName}
}

// Code returns the numeric code the curated row refers to.
func (a AliasRecord) Code() int { return a.code }

// DeckName returns the dataset-native short name.
func (a AliasRecord) DeckName() string { return a.deckName }

// FullName returns the curated full name.
func (a AliasRecord) FullName() string { return a.fullName }

// Strategy identifies which matching stage produced a resolution.
type Strategy string

// Resolution strategy constants, in pipeline order.
const (
	StrategyNumeric Strategy = "numeric"
	StrategyAlias   Strategy = "alias"
	StrategyName    Strategy = "name"
	StrategyKeyword Strategy = "keyword"
)

// Resolution is the outcome of one resolution call. Never cached: the live
// snapshot changes per call context.
type Resolution struct {
	code     int
	name     string
	strategy Strategy
	score    float64
}

// NewResolution creates a resolution result.
func NewResolution(code int, name string, strategy Strategy, score float64) Resolution {
	return Resolution{code: code, name: name, strategy: strategy, score: score}
}

// Code returns the resolved live dataset code.
func (r Resolution) Code() int { return r.code }

// Name returns the display name that matched.
func (r Resolution) Name() string { return r.name }

// Strategy returns the matching stage that succeeded.
func (r Resolution) Strategy() Strategy { return r.strategy }

// Score returns the match confidence.
func (r Resolution) Score() float64 { return r.score }
