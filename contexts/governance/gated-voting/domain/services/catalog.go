package services

import (
	"fmt"
	"strings"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
	domainerrors "slothsafe/contexts/governance/gated-voting/domain/errors"
)

// PollCatalog is the read-only registry of votable polls. Lookups by name are
// exact and case-sensitive.
type PollCatalog struct {
	polls  []entities.Poll
	byName map[string]int
	byID   map[string]int
}

func NewPollCatalog(polls []entities.Poll) (PollCatalog, error) {
	catalog := PollCatalog{
		polls:  make([]entities.Poll, 0, len(polls)),
		byName: make(map[string]int, len(polls)),
		byID:   make(map[string]int, len(polls)),
	}
	for _, poll := range polls {
		if strings.TrimSpace(poll.Name) == "" || strings.TrimSpace(poll.ID) == "" || strings.TrimSpace(poll.Link) == "" {
			return PollCatalog{}, fmt.Errorf("%w: poll %q needs a name, id and link", domainerrors.ErrInvalidCatalog, poll.Name)
		}
		if _, exists := catalog.byName[poll.Name]; exists {
			return PollCatalog{}, fmt.Errorf("%w: duplicate poll name %q", domainerrors.ErrInvalidCatalog, poll.Name)
		}
		if _, exists := catalog.byID[poll.ID]; exists {
			return PollCatalog{}, fmt.Errorf("%w: duplicate poll id %q", domainerrors.ErrInvalidCatalog, poll.ID)
		}
		catalog.byName[poll.Name] = len(catalog.polls)
		catalog.byID[poll.ID] = len(catalog.polls)
		catalog.polls = append(catalog.polls, poll)
	}
	return catalog, nil
}

// ListPolls returns poll names in catalog order.
func (c PollCatalog) ListPolls() []string {
	names := make([]string, 0, len(c.polls))
	for _, poll := range c.polls {
		names = append(names, poll.Name)
	}
	return names
}

func (c PollCatalog) Polls() []entities.Poll {
	return append([]entities.Poll(nil), c.polls...)
}

func (c PollCatalog) Resolve(name string) (entities.Poll, error) {
	idx, ok := c.byName[name]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return c.polls[idx], nil
}

func (c PollCatalog) ByID(pollID string) (entities.Poll, bool) {
	idx, ok := c.byID[pollID]
	if !ok {
		return entities.Poll{}, false
	}
	return c.polls[idx], true
}

func (c PollCatalog) Len() int {
	return len(c.polls)
}
