package llm

// Window selects which part of a conversation history is sent with the next
// request. It must not modify the slice it is given.
//
// The server keeps no session state, so every call resends the turns the
// window returns: with FullHistory an n-turn conversation transfers O(n²)
// bytes in total.
type Window func(history []Turn) []Turn

// FullHistory sends every turn. It is the default window.
func FullHistory(history []Turn) []Turn {
	return history
}

// LastN keeps the leading run of system turns plus the most recent n turns.
// n <= 0 behaves like FullHistory.
func LastN(n int) Window {
	return func(history []Turn) []Turn {
		if n <= 0 || len(history) <= n {
			return history
		}

		lead := 0
		for lead < len(history) && history[lead].Role == RoleSystem {
			lead++
		}

		tail := history[len(history)-n:]
		if lead == 0 {
			return tail
		}

		start := len(history) - n
		if start < lead {
			return history
		}

		out := make([]Turn, 0, lead+n)
		out = append(out, history[:lead]...)
		out = append(out, tail...)
		return out
	}
}
