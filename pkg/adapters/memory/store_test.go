package memory_test

import (
	"testing"

	"github.com/aretw0/otec/pkg/adapters/memory"
	"github.com/aretw0/otec/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunLogStoreContract(t, memory.NewStore())
}
