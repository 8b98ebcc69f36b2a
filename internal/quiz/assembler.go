package quiz

import (
	"context"
	"log"
	"math/rand/v2"
	"strings"

	"github.com/ayusman/lingolens/internal/lang"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency caps simultaneous translation requests.
const DefaultConcurrency = 8

// Translator translates a single English word.
type Translator interface {
	Translate(ctx context.Context, word string, l lang.Language) (string, error)
}

// Assembler turns detected objects into quiz items by translating each one
// concurrently.
type Assembler struct {
	translator Translator
	limit      int
	shuffle    func([]Item)
}

// NewAssembler creates an Assembler running at most concurrency
// translations at once.
func NewAssembler(t Translator, concurrency int) *Assembler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Assembler{
		translator: t,
		limit:      concurrency,
		shuffle:    shuffleItems,
	}
}

func shuffleItems(items []Item) {
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// Assemble issues one translation per distinct object. Failed translations
// are dropped. The result is shuffled so quiz order does not follow
// detection order.
func (a *Assembler) Assemble(ctx context.Context, objects []string, l lang.Language) []Item {
	objects = NormalizeObjects(objects)
	if len(objects) == 0 {
		return nil
	}

	results := make([]*Item, len(objects))

	var g errgroup.Group
	g.SetLimit(a.limit)
	for i, object := range objects {
		g.Go(func() error {
			translated, err := a.translator.Translate(ctx, object, l)
			if err != nil {
				log.Printf("Translation of %q dropped: %v", object, err)
				return nil
			}
			item := NewItem(translated, object)
			results[i] = &item
			return nil
		})
	}
	g.Wait()

	items := make([]Item, 0, len(results))
	for _, r := range results {
		if r != nil {
			items = append(items, *r)
		}
	}
	a.shuffle(items)
	return items
}

// AssembleWithFallback is Assemble plus a passthrough item for every object
// whose translation failed, so no object is ever left out of the quiz.
func (a *Assembler) AssembleWithFallback(ctx context.Context, objects []string, l lang.Language) []Item {
	objects = NormalizeObjects(objects)
	items := a.Assemble(ctx, objects, l)

	present := make(map[string]struct{}, len(items))
	for _, it := range items {
		present[strings.ToLower(it.CorrectEnglish)] = struct{}{}
	}
	for _, o := range objects {
		if _, ok := present[o]; !ok {
			items = append(items, Passthrough(o))
		}
	}

	a.shuffle(items)
	return items
}
