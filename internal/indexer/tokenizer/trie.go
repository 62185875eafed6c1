package tokenizer

type trieNode struct {
	children map[rune]*trieNode
	terminal bool
}

type trie struct {
	root *trieNode
	size int
}

func newTrie() *trie {
	return &trie{root: &trieNode{children: make(map[rune]*trieNode)}}
}

func (t *trie) insert(word string) {
	node := t.root
	for _, r := range word {
		next, ok := node.children[r]
		if !ok {
			next = &trieNode{children: make(map[rune]*trieNode)}
			node.children[r] = next
		}
		node = next
	}
	if !node.terminal {
		node.terminal = true
		t.size++
	}
}

// longestPrefix returns the rune length of the longest word that prefixes
// text, or 0.
func (t *trie) longestPrefix(text []rune) int {
	node := t.root
	longest := 0
	for i, r := range text {
		next, ok := node.children[r]
		if !ok {
			break
		}
		node = next
		if node.terminal {
			longest = i + 1
		}
	}
	return longest
}
