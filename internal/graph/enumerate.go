package graph

// GenerateAllPaths performs a depth-bounded DFS from start, returning
// every simple cycle start = v0, v1, ..., vk = start with k <= maxDepth.
// An intermediate vertex may not repeat, except that the cycle's final
// return to start is always allowed. A deposit edge may not be the very
// first move out of start — "if there is an opportunity starting at
// another exchange, we will find it by searching on that exchange" — but
// is allowed at every other position.
func GenerateAllPaths(start *ExchangeCurrency, maxDepth int) []*Path {
	var paths []*Path

	var walk func(current *ExchangeCurrency, visited []*ExchangeCurrency, depth int)
	walk = func(current *ExchangeCurrency, visited []*ExchangeCurrency, depth int) {
		if depth > maxDepth {
			return
		}

		if len(visited) > 1 && current == start {
			p := NewPath()
			for _, c := range visited {
				p.AddCurrency(c)
			}
			paths = append(paths, p)
			return
		}

		for _, id := range current.Neighbors() {
			neighbor, mkt, ok := current.EdgeTo(id)
			if !ok {
				continue
			}

			if len(visited) == 1 && mkt.IsDeposit() {
				continue
			}

			if containsVertex(visited, neighbor) && neighbor != visited[0] {
				continue
			}

			next := append(append([]*ExchangeCurrency{}, visited...), neighbor)
			walk(neighbor, next, depth+1)
		}
	}

	walk(start, []*ExchangeCurrency{start}, 0)
	return paths
}

func containsVertex(visited []*ExchangeCurrency, v *ExchangeCurrency) bool {
	for _, c := range visited {
		if c == v {
			return true
		}
	}
	return false
}
