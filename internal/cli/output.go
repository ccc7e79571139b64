package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case SessionSummary:
		o.printSessionSummary(v)
	case []SessionSummary:
		for _, s := range v {
			o.printSessionSummary(s)
		}
	case SessionView:
		o.printSessionView(v)
	case Slots:
		o.printSlots(v)
	case Hand:
		o.printCards("Hand", v.Cards)
	case Detection:
		o.printDetection(v)
	case ExtractionOffer:
		o.printExtractionOffer(v)
	case Advanced:
		fmt.Printf("Advanced: %t\n", v.Advanced)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	IsAdmin     bool   `json:"is_admin,omitempty"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player Player `json:"player"`
	Token  string `json:"token"`
}

// SessionSummary response type
type SessionSummary struct {
	ID           string `json:"id"`
	Phase        string `json:"phase"`
	Round        int    `json:"round"`
	IsPaused     bool   `json:"is_paused"`
	Participants int    `json:"participants"`
	Active       int    `json:"active"`
}

// Card response type
type Card struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Standard *struct {
		Rank int    `json:"rank"`
		Suit string `json:"suit"`
	} `json:"standard,omitempty"`
	Special *struct {
		Type          string `json:"type"`
		UsesRemaining int    `json:"uses_remaining"`
	} `json:"special,omitempty"`
}

// String renders a card for text output
func (c Card) String() string {
	switch {
	case c.Standard != nil:
		return fmt.Sprintf("%d of %s [%s]", c.Standard.Rank, c.Standard.Suit, c.ID)
	case c.Special != nil:
		return fmt.Sprintf("%s [%s]", strings.ToUpper(c.Special.Type), c.ID)
	default:
		return c.ID
	}
}

// Participant response type
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Status      string `json:"status"`
	GroupID     string `json:"group_id,omitempty"`
	IsZombie    bool   `json:"is_zombie"`
}

// Group response type
type Group struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

// BattleResult response type
type BattleResult struct {
	GroupID    string   `json:"group_id"`
	Winners    []string `json:"winners"`
	Losers     []string `json:"losers"`
	Eliminated []string `json:"eliminated"`
}

// ExtractionCandidate response type
type ExtractionCandidate struct {
	Owner string `json:"owner"`
	Card  Card   `json:"card"`
}

// ExtractionOffer response type
type ExtractionOffer struct {
	GroupID    string                `json:"group_id"`
	Winner     string                `json:"winner"`
	Candidates []ExtractionCandidate `json:"candidates"`
	Resolved   bool                  `json:"resolved"`
}

// Slots response type
type Slots struct {
	Round int     `json:"round"`
	Slots []*Card `json:"slots"`
}

// SessionView response type
type SessionView struct {
	SessionID        string           `json:"session_id"`
	Phase            string           `json:"phase"`
	Round            int              `json:"round"`
	RemainingSeconds int              `json:"remaining_seconds"`
	IsPaused         bool             `json:"is_paused"`
	Participants     []Participant    `json:"participants"`
	Groups           []Group          `json:"groups,omitempty"`
	Hand             []Card           `json:"hand,omitempty"`
	Slots            *Slots           `json:"slots,omitempty"`
	Results          []BattleResult   `json:"results,omitempty"`
	Extraction       *ExtractionOffer `json:"extraction,omitempty"`
}

// Hand response type
type Hand struct {
	Cards []Card `json:"cards"`
}

// Detection response type
type Detection struct {
	Groupmates map[string]map[string]int `json:"groupmates"`
}

// Advanced response type
type Advanced struct {
	Advanced bool `json:"advanced"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayer(p Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Printf("Guest: %s\n", guestStr)
	if p.IsAdmin {
		fmt.Println("Admin: yes")
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.Token)
}

func (o *Output) printSessionSummary(s SessionSummary) {
	paused := ""
	if s.IsPaused {
		paused = " (paused)"
	}
	fmt.Printf("%s  %s round %d%s  %d/%d active\n", s.ID, s.Phase, s.Round, paused, s.Active, s.Participants)
}

func (o *Output) printSessionView(v SessionView) {
	fmt.Printf("Session: %s\n", v.SessionID)
	fmt.Printf("Phase: %s (round %d)\n", v.Phase, v.Round)
	if v.IsPaused {
		fmt.Println("Paused")
	} else if v.RemainingSeconds > 0 {
		fmt.Printf("Remaining: %ds\n", v.RemainingSeconds)
	}

	if len(v.Participants) > 0 {
		fmt.Printf("\nParticipants (%d):\n", len(v.Participants))
		for _, p := range v.Participants {
			extra := ""
			if p.GroupID != "" {
				extra += " group " + p.GroupID
			}
			if p.IsZombie {
				extra += " [zombie]"
			}
			fmt.Printf("  - %s (%s) %s %d%s\n", p.DisplayName, p.ID, p.Status, p.Score, extra)
		}
	}

	if len(v.Hand) > 0 {
		fmt.Println()
		o.printCards("Hand", v.Hand)
	}
	if v.Slots != nil {
		fmt.Println()
		o.printSlots(*v.Slots)
	}

	if len(v.Results) > 0 {
		fmt.Println("\nResults:")
		for _, r := range v.Results {
			fmt.Printf("  %s: winners %s, losers %s", r.GroupID, strings.Join(r.Winners, ", "), strings.Join(r.Losers, ", "))
			if len(r.Eliminated) > 0 {
				fmt.Printf(", eliminated %s", strings.Join(r.Eliminated, ", "))
			}
			fmt.Println()
		}
	}

	if v.Extraction != nil {
		fmt.Println()
		o.printExtractionOffer(*v.Extraction)
	}
}

func (o *Output) printCards(label string, cards []Card) {
	fmt.Printf("%s (%d):\n", label, len(cards))
	for _, c := range cards {
		fmt.Printf("  %s\n", c)
	}
}

func (o *Output) printSlots(s Slots) {
	fmt.Printf("Slots (round %d):\n", s.Round)
	for i, c := range s.Slots {
		if c == nil {
			fmt.Printf("  %d: -\n", i+1)
			continue
		}
		fmt.Printf("  %d: %s\n", i+1, *c)
	}
}

func (o *Output) printDetection(d Detection) {
	ids := make([]string, 0, len(d.Groupmates))
	for id := range d.Groupmates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		counts := d.Groupmates[id]
		fmt.Printf("%s: zombie %d, injection %d, shotgun %d\n", id, counts["zombie"], counts["injection"], counts["shotgun"])
	}
}

func (o *Output) printExtractionOffer(e ExtractionOffer) {
	if e.Resolved {
		fmt.Println("Extraction: resolved")
		return
	}
	fmt.Println("Extraction candidates:")
	for _, c := range e.Candidates {
		fmt.Printf("  %s from %s\n", c.Card, c.Owner)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
