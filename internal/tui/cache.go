package tui

import "container/list"

// previewKey identifies one rendering of a pattern. The generation is bumped
// on every catalog reload, so a pattern whose prompt changed on disk is never
// served from a preview rendered before the reload. Width is part of the key
// because glamour output is wrapped to the viewport.
type previewKey struct {
	name       string
	generation uint64
	glamour    bool
	width      int
}

type previewEntry struct {
	key     previewKey
	content string
}

// previewCache keeps rendered previews under a byte budget, evicting the
// least recently viewed first.
type previewCache struct {
	budget int
	used   int
	order  *list.List
	byKey  map[previewKey]*list.Element
}

func newPreviewCache(budget int) *previewCache {
	return &previewCache{
		budget: budget,
		order:  list.New(),
		byKey:  make(map[previewKey]*list.Element),
	}
}

func (c *previewCache) get(key previewKey) (string, bool) {
	el, ok := c.byKey[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*previewEntry).content, true
}

// put stores content for key. Previews larger than the whole budget are not kept.
func (c *previewCache) put(key previewKey, content string) {
	if len(content) > c.budget {
		return
	}
	if el, ok := c.byKey[key]; ok {
		c.remove(el)
	}
	c.byKey[key] = c.order.PushFront(&previewEntry{key: key, content: content})
	c.used += len(content)

	for c.used > c.budget {
		c.remove(c.order.Back())
	}
}

// retainGeneration drops every preview rendered for another catalog generation.
func (c *previewCache) retainGeneration(generation uint64) {
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*previewEntry).key.generation != generation {
			c.remove(el)
		}
		el = next
	}
}

func (c *previewCache) len() int {
	return c.order.Len()
}

func (c *previewCache) remove(el *list.Element) {
	entry := el.Value.(*previewEntry)
	c.order.Remove(el)
	delete(c.byKey, entry.key)
	c.used -= len(entry.content)
}
