package convert

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zeebo/blake3"

	"fabula/internal/pack"
	"fabula/internal/testsupport"
)

func TestFlightCacheSingleInvocation(t *testing.T) {
	cache := newFlightCache[pack.ImageType]()
	key := blake3.Sum256([]byte("shared payload"))

	var calls atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, typ, err := cache.do(key, func() ([]byte, pack.ImageType, error) {
				calls.Add(1)
				return []byte("converted"), pack.ImagePNG, nil
			})
			if err != nil {
				t.Errorf("do: %v", err)
			}
			if string(data) != "converted" || typ != pack.ImagePNG {
				t.Errorf("unexpected result %q %s", data, typ)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("transform ran %d times, want 1", got)
	}
}

func TestFlightCacheDistinctKeys(t *testing.T) {
	cache := newFlightCache[pack.AudioType]()

	var calls atomic.Int32
	for _, payload := range []string{"one", "two", "one"} {
		_, _, err := cache.do(blake3.Sum256([]byte(payload)), func() ([]byte, pack.AudioType, error) {
			calls.Add(1)
			return nil, pack.AudioWAV, nil
		})
		if err != nil {
			t.Fatalf("do: %v", err)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("transform ran %d times, want 2", got)
	}
}

func TestFlightCacheSharesErrors(t *testing.T) {
	cache := newFlightCache[pack.ImageType]()
	key := blake3.Sum256([]byte("bad payload"))
	boom := errors.New("decode failed")

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		_, _, err := cache.do(key, func() ([]byte, pack.ImageType, error) {
			calls.Add(1)
			return nil, "", boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected cached error, got %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("transform ran %d times, want 1", got)
	}
}

func TestForEachNodeStopsOnError(t *testing.T) {
	converter, _ := newTestConverter(t)
	p := testsupport.SamplePack(t)
	boom := errors.New("transform failed")

	err := converter.forEachNode(context.Background(), p, func(node *pack.StageNode) error {
		if node.UUID == p.Nodes[1].UUID {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected transform error, got %v", err)
	}
}

func TestForEachNodeHonorsCancellation(t *testing.T) {
	converter, _ := newTestConverter(t)
	p := testsupport.SamplePack(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := converter.forEachNode(ctx, p, func(node *pack.StageNode) error {
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProcessImagesSharesIdenticalPayloads(t *testing.T) {
	converter, _ := newTestConverter(t)

	shared := []byte{1, 2, 3, 4}
	p := &pack.Pack{
		UUID: "11111111-1111-1111-1111-111111111111",
		Nodes: []*pack.StageNode{
			{UUID: "11111111-1111-1111-1111-111111111111", Image: &pack.ImageAsset{Type: pack.ImageBMP, Data: append([]byte{}, shared...)}},
			{UUID: "22222222-2222-2222-2222-222222222222", Image: &pack.ImageAsset{Type: pack.ImageBMP, Data: append([]byte{}, shared...)}},
		},
	}

	var calls atomic.Int32
	err := converter.processImages(context.Background(), p, func(a *pack.ImageAsset) ([]byte, pack.ImageType, error) {
		calls.Add(1)
		return []byte("out"), pack.ImagePNG, nil
	})
	if err != nil {
		t.Fatalf("processImages: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("transform ran %d times for identical payloads, want 1", got)
	}
	for i, node := range p.Nodes {
		if node.Image.Type != pack.ImagePNG || string(node.Image.Data) != "out" {
			t.Errorf("node %d asset not rewritten", i)
		}
	}
}
