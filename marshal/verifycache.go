// verifycache.go: a caching wrapper around the host bytecode verifier. Real
// programs decode many coroutines suspended inside the same hot function,
// so the same *mindscript.FuncDef bytecode gets handed to the verifier
// repeatedly within one process; CachedVerifier memoizes by content digest
// and collapses concurrent duplicate verifications of the same digest into
// one call.
package marshal

import (
	"encoding/binary"
	"hash/fnv"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	ms "github.com/tekknolagi/janet"
)

// CachedVerifier wraps a verify function with an LRU digest cache.
type CachedVerifier struct {
	verify func(*ms.FuncDef) bool
	cache  *lru.Cache
	group  singleflight.Group
}

// NewCachedVerifier builds a CachedVerifier holding up to size distinct
// bytecode digests.
func NewCachedVerifier(verify func(*ms.FuncDef) bool, size int) (*CachedVerifier, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedVerifier{verify: verify, cache: cache}, nil
}

// Verify satisfies the Codec.Verify signature.
func (cv *CachedVerifier) Verify(def *ms.FuncDef) bool {
	key := bytecodeDigest(def)
	if v, ok := cv.cache.Get(key); ok {
		return v.(bool)
	}
	result, _, _ := cv.group.Do(key, func() (interface{}, error) {
		ok := cv.verify(def)
		cv.cache.Add(key, ok)
		return ok, nil
	})
	return result.(bool)
}

func bytecodeDigest(def *ms.FuncDef) string {
	h := fnv.New64a()
	var buf [4]byte
	for _, w := range def.Bytecode {
		binary.LittleEndian.PutUint32(buf[:], w)
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint32(buf[:], uint32(def.SlotCount))
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], uint32(def.Arity))
	h.Write(buf[:])
	return string(h.Sum(nil))
}
