package catalog

import (
	"strconv"
	"strings"
)

// Entry is one item of GET /pokemon.
type Entry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ID extracts the numeric id from the entry URL, e.g.
// https://pokeapi.co/api/v2/pokemon/25/ -> 25.
func (e Entry) ID() (int, bool) {
	parts := strings.Split(strings.TrimRight(e.URL, "/"), "/")
	if len(parts) == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type listResponse struct {
	Count   int     `json:"count"`
	Results []Entry `json:"results"`
}

type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Sprites struct {
	FrontDefault string `json:"front_default"`
	FrontShiny   string `json:"front_shiny"`
	BackDefault  string `json:"back_default"`
	BackShiny    string `json:"back_shiny"`
}

type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// Details is the subset of GET /pokemon/{id} the service uses.
type Details struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Height         int        `json:"height"`
	Weight         int        `json:"weight"`
	BaseExperience int        `json:"base_experience"`
	Sprites        Sprites    `json:"sprites"`
	Types          []TypeSlot `json:"types"`
}
