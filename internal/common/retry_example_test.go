package common_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"template-scout/internal/common"
)

// ExampleDo_basic demonstrates basic usage of the retry mechanism.
func ExampleDo_basic() {
	ctx := context.Background()

	err := common.Do(ctx, func() error {
		return nil
	})

	fmt.Println("error:", err)
	// Output: error: <nil>
}

// ExampleDo_linear shows the linear schedule used for repository detail fetches.
func ExampleDo_linear() {
	ctx := context.Background()
	attempts := 0

	err := common.Do(ctx,
		func() error {
			attempts++
			if attempts < 3 {
				return errors.New("github 502")
			}
			return nil
		},
		common.WithMaxAttempts(3),
		common.WithInitialDelay(time.Millisecond),
		common.WithBackoff(common.LinearBackoff),
	)

	fmt.Println("attempts:", attempts, "error:", err)
	// Output: attempts: 3 error: <nil>
}

// ExampleDo_notRetryable shows how a permanent error short-circuits the loop.
func ExampleDo_notRetryable() {
	ctx := context.Background()
	attempts := 0

	err := common.Do(ctx,
		func() error {
			attempts++
			return common.NewError(common.ErrCodeNotFound, "repository not found")
		},
		common.WithRetryIf(func(err error) bool {
			return !common.HasCode(err, common.ErrCodeNotFound)
		}),
	)

	fmt.Println("attempts:", attempts)
	fmt.Println(err)
	// Output:
	// attempts: 1
	// [NOT_FOUND] repository not found
}
