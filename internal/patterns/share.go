package patterns

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/verte-zerg/punchcall/internal/model"
)

// ErrNoImportableSet reports a share token that does not decode to a set.
var ErrNoImportableSet = errors.New("no importable set found")

type sharePayload struct {
	Name     string  `json:"n"`
	Patterns [][]int `json:"p"`
}

// EncodeShare returns a URL-safe token carrying the name and patterns of set.
func EncodeShare(set model.PatternSet) (string, error) {
	payload := sharePayload{Name: set.Name, Patterns: make([][]int, len(set.Patterns))}
	for i, p := range set.Patterns {
		payload.Patterns[i] = []int(p.Clone())
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeShare parses a token produced by EncodeShare. Any malformed input
// yields ErrNoImportableSet.
func DecodeShare(token string) (model.PatternSet, error) {
	token = strings.TrimRight(strings.TrimSpace(token), "=")
	if token == "" {
		return model.PatternSet{}, ErrNoImportableSet
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return model.PatternSet{}, fmt.Errorf("%w: %v", ErrNoImportableSet, err)
	}
	var payload sharePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.PatternSet{}, fmt.Errorf("%w: %v", ErrNoImportableSet, err)
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" || len(payload.Patterns) == 0 {
		return model.PatternSet{}, ErrNoImportableSet
	}
	set := model.PatternSet{Name: name}
	for _, units := range payload.Patterns {
		p, err := model.NewPattern(units...)
		if err != nil {
			return model.PatternSet{}, fmt.Errorf("%w: %v", ErrNoImportableSet, err)
		}
		if set.Contains(p) {
			continue
		}
		set.Patterns = append(set.Patterns, p)
	}
	return set, nil
}

// ShareTokenFromLink extracts the token from a link carrying it in a
// "set" query or fragment parameter. Other input is returned trimmed.
func ShareTokenFromLink(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	if token := u.Query().Get("set"); token != "" {
		return token
	}
	if u.Fragment != "" {
		if values, err := url.ParseQuery(u.Fragment); err == nil {
			if token := values.Get("set"); token != "" {
				return token
			}
		}
	}
	return link
}

// ShareLink builds a link for base carrying token in its query.
func ShareLink(base, token string) string {
	if base == "" {
		return token
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "set=" + token
}
