// Package mock provides test doubles for the ai interfaces.
//
// MockEmbedder returns bag-of-words vectors by default, so texts sharing
// words score as similar under cosine similarity. Behavior can be replaced
// by setting EmbedTextFunc or EmbedTextsFunc.
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("service down")
//	}
package mock
