package breaker_test

import (
	"context"
	"fmt"

	breaker "github.com/riftlatch/breaker"
)

func ExampleCall() {
	b := breaker.NewBreaker(breaker.WithFailMax(1))

	foo := func(ctx context.Context, bar int) (int, error) {
		if bar == 42 {
			return bar, nil
		}
		return 0, fmt.Errorf("bar is not 42")
	}

	out, err := breaker.Call(context.Background(), b, func(ctx context.Context) (int, error) { return foo(ctx, 42) })
	if err != nil {
		fmt.Println(err)
	}
	fmt.Println(out)

	_, err = breaker.Call(context.Background(), b, func(ctx context.Context) (int, error) { return foo(ctx, 0) })
	fmt.Println(err)

	_, err = breaker.Call(context.Background(), b, func(ctx context.Context) (int, error) { return foo(ctx, 42) })
	fmt.Println(err)

	// Output:
	// 42
	// bar is not 42
	// breaker: circuit is open
}
