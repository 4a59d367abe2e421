package common

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceNumberUnique(t *testing.T) {
	const workers = 8
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				inv := InvoiceNumber()
				mu.Lock()
				seen[inv] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	for inv := range seen {
		assert.True(t, strings.HasPrefix(inv, "INV-"))
		break
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestUUIDint64Increasing(t *testing.T) {
	a := UUIDint64()
	b := UUIDint64()
	assert.Greater(t, b, a)
}
