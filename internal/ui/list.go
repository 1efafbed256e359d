package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/trackdl/internal/models"
)

var _ list.Item = workItem{}

// workItem wraps [models.WorkItem] to implement [list.Item].
type workItem struct {
	item models.WorkItem
}

func (i workItem) FilterValue() string { return i.item.Filename }
func (i workItem) Title() string       { return i.item.Title() }
func (i workItem) Description() string {
	desc := strings.Join(i.item.Artists, ", ")
	if i.item.Album != "" {
		desc += " • " + i.item.Album
	}
	return desc
}

func newWorkList(items []models.WorkItem, width, height int) list.Model {
	entries := make([]list.Item, len(items))
	for i, item := range items {
		entries[i] = workItem{item: item}
	}
	l := list.New(entries, list.NewDefaultDelegate(), width, height)
	l.Title = "Planned Tracks"
	return l
}
