package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"finqa/internal/domain"
	"finqa/internal/logging"
	"finqa/internal/prompt"
	"finqa/internal/retrieval"
)

// Options tunes retrieval and the article preview.
type Options struct {
	TopK         int
	PreviewChars int
}

// RAGService runs fetch, chunk, index, retrieve, prompt and generate for one
// question at a time. It keeps no state between calls; each call builds and
// discards its own index.
type RAGService struct {
	fetcher   domain.ArticleFetcher
	chunker   domain.Chunker
	indexer   *retrieval.Builder
	generator domain.Generator
	opts      Options
	log       *zap.Logger
}

func NewRAGService(fetcher domain.ArticleFetcher, chunker domain.Chunker, indexer *retrieval.Builder, generator domain.Generator, opts Options, log *zap.Logger) *RAGService {
	if opts.TopK <= 0 {
		opts.TopK = retrieval.DefaultTopK
	}
	if opts.PreviewChars < 0 {
		opts.PreviewChars = 0
	}
	return &RAGService{
		fetcher:   fetcher,
		chunker:   chunker,
		indexer:   indexer,
		generator: generator,
		opts:      opts,
		log:       logging.OrNop(log).Named("service"),
	}
}

// Outcome is everything the interface layer renders for one submission.
type Outcome struct {
	RequestID string
	Answer    domain.Answer
	// Err is a *domain.Error when the request failed; Answer is then empty.
	Err error
	// Preview holds the first PreviewChars characters of the article, empty
	// when the article could not be fetched.
	Preview string
}

// Ask fetches the article at url and answers query from it.
func (s *RAGService) Ask(ctx context.Context, url, query string) Outcome {
	out := Outcome{RequestID: uuid.NewString()}
	log := s.log.With(zap.String("request_id", out.RequestID))
	start := time.Now()

	article := s.fetcher.Fetch(ctx, url)
	if article == "" {
		out.Err = domain.NewError(domain.KindFetch, "failed to fetch article, please check the URL and try again", nil)
		log.Warn("fetch failed", zap.String("url", url))
		return out
	}
	out.Preview = Preview(article, s.opts.PreviewChars)

	out.Answer, out.Err = s.answer(ctx, log, query, article)
	log.Info("question answered",
		zap.String("url", url),
		zap.Int("article_chars", utf8.RuneCountInString(article)),
		zap.Bool("ok", out.Err == nil),
		zap.Duration("took", time.Since(start)))
	return out
}

// Answer answers query from articleText. The returned error is always a
// *domain.Error; an empty article is rejected before any other stage runs.
func (s *RAGService) Answer(ctx context.Context, query, articleText string) (domain.Answer, error) {
	return s.answer(ctx, s.log, query, articleText)
}

func (s *RAGService) answer(ctx context.Context, log *zap.Logger, query, articleText string) (ans domain.Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while answering", zap.Any("panic", r))
			ans, err = domain.Answer{}, domain.NewError(domain.KindProcessing, "error processing query", fmt.Errorf("%v", r))
		}
	}()

	if articleText == "" {
		return domain.Answer{}, domain.NewError(domain.KindNoArticle, "no article text provided", nil)
	}

	chunks := s.chunker.Chunk(articleText)
	if len(chunks) == 0 {
		return domain.Answer{}, domain.NewError(domain.KindProcessing, "failed to process article text", nil)
	}

	idx, err := s.indexer.Build(ctx, chunks)
	if err != nil {
		log.Error("index build failed", zap.Error(err))
		return domain.Answer{}, asPipelineError(err)
	}

	relevant := idx.Retrieve(ctx, query, s.opts.TopK)
	log.Debug("chunks retrieved", zap.Int("chunks", len(chunks)), zap.Int("relevant", len(relevant)))

	resp, err := s.generator.Generate(ctx, prompt.Build(query, relevant))
	if err != nil {
		log.Error("generation failed", zap.Error(err))
		return domain.Answer{}, asPipelineError(err)
	}
	return domain.Answer{Text: resp.Text, Context: relevant}, nil
}

// asPipelineError keeps a *domain.Error as is and tags anything else as a
// processing error carrying the original message.
func asPipelineError(err error) error {
	if domain.KindOf(err) != domain.KindUnknown {
		return err
	}
	return domain.NewError(domain.KindProcessing, "error processing query", err)
}

// Preview returns the first n characters of text, followed by "..." when
// text is longer.
func Preview(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}
