package model

// EventKind tags the sequence event union.
type EventKind string

const (
	EventChoice       EventKind = "choice"
	EventStatChange   EventKind = "stat_change"
	EventStatCheck    EventKind = "stat_check"
	EventItem         EventKind = "item"
	EventItemCheck    EventKind = "item_check"
	EventStateCheck   EventKind = "state_check"
	EventTestLuck     EventKind = "test_luck"
	EventCombat       EventKind = "combat"
	EventDeath        EventKind = "death"
	EventConditional  EventKind = "conditional"
)

// Stat is one of the four gameplay resources a stat_change/stat_check can
// reference.
type Stat string

const (
	StatSkill   Stat = "SKILL"
	StatStamina Stat = "STAMINA"
	StatLuck    Stat = "LUCK"
	StatGold    Stat = "GOLD"
)

// ItemAction distinguishes the three ways an item event can touch inventory.
type ItemAction string

const (
	ItemAdd       ItemAction = "add"
	ItemRemove    ItemAction = "remove"
	ItemReference ItemAction = "reference"
)

// Endpoint is a branch endpoint: exactly one of TargetSection or Terminal is
// set, never both, never neither (once normalized).
type Endpoint struct {
	TargetSection string `json:"targetSection,omitempty"`
	Terminal      string `json:"terminal,omitempty"`
}

// IsZero reports whether the endpoint was never resolved (dropped event).
func (e Endpoint) IsZero() bool {
	return e.TargetSection == "" && e.Terminal == ""
}

// Valid reports whether exactly one of the two endpoint fields is set.
func (e Endpoint) Valid() bool {
	return (e.TargetSection != "") != (e.Terminal != "")
}

// TargetEndpoint builds a resolved section-target endpoint.
func TargetEndpoint(section string) Endpoint { return Endpoint{TargetSection: section} }

// TerminalEndpoint builds a resolved terminal endpoint ("death", "win", "timeout").
func TerminalEndpoint(kind string) Endpoint { return Endpoint{Terminal: kind} }

// DiceExpr is a dice expression preserved verbatim through to the gamebook
// JSON (e.g. "-(1d6+2)"), rather than evaluated.
type DiceExpr string

// Amount is either a literal integer delta or a dice expression; exactly one
// is populated.
type Amount struct {
	Literal *int     `json:"literal,omitempty"`
	Dice    DiceExpr `json:"dice,omitempty"`
}

// LiteralAmount builds an Amount carrying a literal integer delta.
func LiteralAmount(n int) *Amount { return &Amount{Literal: &n} }

// DiceAmount builds an Amount carrying a dice expression.
func DiceAmount(expr DiceExpr) *Amount { return &Amount{Dice: expr} }

// ItemEvent is an inventory effect attached either directly to a section's
// sequence or nested inside a choice's Effects.
type ItemEvent struct {
	Kind   EventKind  `json:"kind"`
	Action ItemAction `json:"action"`
	Name   string     `json:"name"`
}

// Enemy is one combatant in a CombatEvent.
type Enemy struct {
	Name    string `json:"name"`
	Skill   int    `json:"SKILL"`
	Stamina int    `json:"STAMINA"`
}

// CombatOutcomes names the branch endpoints a combat event can resolve to.
// Choices built from these are placed after the combat event in the
// section's sequence.
type CombatOutcomes struct {
	Win    *Endpoint `json:"win,omitempty"`
	Lose   *Endpoint `json:"lose,omitempty"`
	Escape *Endpoint `json:"escape,omitempty"`
}

// Event is the tagged union described in spec.md §3. Only the fields
// relevant to Kind are populated; JSON omits the rest via omitempty.
type Event struct {
	Kind EventKind `json:"kind"`

	// choice
	ChoiceText string      `json:"choiceText,omitempty"`
	Endpoint   *Endpoint   `json:"-"` // flattened into TargetSection/Terminal below
	Effects    []ItemEvent `json:"effects,omitempty"`

	// flattened endpoint fields (choice, and the pass/fail/has/missing branches below)
	TargetSection string `json:"targetSection,omitempty"`
	Terminal      string `json:"terminal,omitempty"`

	// stat_change
	Stat      Stat    `json:"stat,omitempty"`
	Amount    *Amount `json:"amount,omitempty"`
	Permanent bool    `json:"permanent,omitempty"`

	// stat_check
	DiceRoll      string    `json:"diceRoll,omitempty"`
	PassCondition string    `json:"passCondition,omitempty"`
	FailCondition string    `json:"failCondition,omitempty"`
	Pass          *Endpoint `json:"pass,omitempty"`
	Fail          *Endpoint `json:"fail,omitempty"`

	// item
	Action ItemAction `json:"action,omitempty"`
	Name   string     `json:"name,omitempty"`

	// item_check
	ItemName  string    `json:"itemName,omitempty"`
	ItemsAll  []string  `json:"itemsAll,omitempty"`
	Has       *Endpoint `json:"has,omitempty"`
	Missing   *Endpoint `json:"missing,omitempty"`

	// state_check
	ConditionText string `json:"conditionText,omitempty"`

	// test_luck
	Lucky   *Endpoint `json:"lucky,omitempty"`
	Unlucky *Endpoint `json:"unlucky,omitempty"`

	// combat
	Enemies  []Enemy         `json:"enemies,omitempty"`
	Outcomes *CombatOutcomes `json:"outcomes,omitempty"`

	// death
	Outcome     string `json:"outcome,omitempty"`
	Description string `json:"description,omitempty"`

	// conditional
	Condition *Condition `json:"condition,omitempty"`
	Then      []Event    `json:"then,omitempty"`
	Else      []Event    `json:"else,omitempty"`

	// source offset in the section's raw HTML, used only for ordering; never
	// serialized to the final gamebook.
	Offset int `json:"-"`
}

// Condition gates a conditional event on an item or a free-text state.
type Condition struct {
	Item  string `json:"item,omitempty"`
	State string `json:"state,omitempty"`
}
