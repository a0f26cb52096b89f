package memo_test

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/JasonGross/openreview-exploration/memo"
)

func ExampleWrap() {
	calls := 0
	upper := func(_ context.Context, s string) (string, error) {
		calls++
		return strings.ToUpper(s), nil
	}

	m, err := memo.Wrap(memo.NewMemoryStore(), "upper", upper)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	ctx := context.Background()
	a, _ := m.Call(ctx, "neurips")
	b, _ := m.Call(ctx, "neurips")
	fmt.Println(a, b, "calls:", calls)
	// Output:
	// NEURIPS NEURIPS calls: 1
}

func ExampleWithScope() {
	dir, err := os.MkdirTemp("", "memo-example")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	square := func(_ context.Context, c memo.Call) (int, error) {
		n := c.Kwargs["n"].(float64)
		return int(n * n), nil
	}

	err = memo.WithScope(ctx, dir, func(s *memo.Scope) error {
		m, err := memo.Bind(ctx, s, "square", square)
		if err != nil {
			return err
		}
		v, err := m.Call(ctx, memo.Call{Kwargs: map[string]any{"n": 12.0}})
		if err != nil {
			return err
		}
		fmt.Println(v, m.Stats().Misses)
		return nil
	})
	if err != nil {
		fmt.Println("error:", err)
	}
	// Output:
	// 144 1
}
