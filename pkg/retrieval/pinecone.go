package retrieval

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/embeddings"
	langopenai "github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/edulens/quizfeedback-api/pkg/ai"
)

// DefaultScoreThreshold discards weak matches unless the config overrides it.
const DefaultScoreThreshold = 0.5

const defaultTopK = 3

// Config defines configuration options for the Pinecone retrieval client.
type Config struct {
	// PineconeAPIKey and IndexName identify the vector index; both are required.
	PineconeAPIKey string
	IndexName      string
	// OpenAIAPIKey authorizes the query embedder.
	OpenAIAPIKey string
	// EmbeddingModel defaults to text-embedding-ada-002, matching the indexed corpus.
	EmbeddingModel string
	// ScoreThreshold defaults to DefaultScoreThreshold.
	ScoreThreshold float64
	Logger         zerolog.Logger
}

// Client embeds queries and searches the course vector index. Searches are
// scoped to one course via the index namespace.
type Client struct {
	pc         *pinecone.Client
	embedder   embeddings.Embedder
	summarizer ai.Completer
	indexName  string
	threshold  float64
	logger     zerolog.Logger
}

// NewClient builds a retrieval client. Missing Pinecone credentials or index
// name abort construction; summarizer may be nil when summaries are never
// requested.
func NewClient(cfg Config, summarizer ai.Completer) (*Client, error) {
	if cfg.PineconeAPIKey == "" {
		return nil, fmt.Errorf("pinecone api key is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("pinecone index name is required")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: cfg.PineconeAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = "text-embedding-ada-002"
	}

	llm, err := langopenai.New(
		langopenai.WithToken(cfg.OpenAIAPIKey),
		langopenai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	threshold := cfg.ScoreThreshold
	if threshold == 0 {
		threshold = DefaultScoreThreshold
	}

	return &Client{
		pc:         pc,
		embedder:   embedder,
		summarizer: summarizer,
		indexName:  cfg.IndexName,
		threshold:  threshold,
		logger:     cfg.Logger.With().Str("component", "retrieval_client").Logger(),
	}, nil
}

// FetchRelevantResults embeds the query, searches the course namespace, and
// returns the matches at or above the score threshold. A query that matches
// nothing returns an empty slice and nil error.
func (c *Client) FetchRelevantResults(ctx context.Context, courseID int64, query string, opts QueryOptions) ([]Match, error) {
	vector, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		c.logger.Error().Err(err).Int64("course_id", courseID).Msg("failed to embed query")
		return nil, fmt.Errorf("%w: embed query: %v", ErrRetrievalFailed, err)
	}

	namespace := strconv.FormatInt(courseID, 10)

	idxDesc, err := c.pc.DescribeIndex(ctx, c.indexName)
	if err != nil {
		c.logger.Error().Err(err).Str("index", c.indexName).Msg("failed to describe index")
		return nil, fmt.Errorf("%w: describe index: %v", ErrRetrievalFailed, err)
	}

	idxConn, err := c.pc.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: namespace,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("index", c.indexName).Msg("failed to connect to index")
		return nil, fmt.Errorf("%w: connect to index: %v", ErrRetrievalFailed, err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	request := &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: true,
	}

	if len(opts.Filter) > 0 {
		filter, err := structpb.NewStruct(opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("%w: build metadata filter: %v", ErrRetrievalFailed, err)
		}
		request.MetadataFilter = filter
	}

	result, err := idxConn.QueryByVectorValues(ctx, request)
	if err != nil {
		c.logger.Error().Err(err).Str("namespace", namespace).Msg("vector query failed")
		return nil, fmt.Errorf("%w: query vectors: %v", ErrRetrievalFailed, err)
	}

	matches := collectMatches(result.Matches, c.threshold)
	if len(matches) == 0 {
		c.logger.Debug().Str("namespace", namespace).Msg("no matches above threshold")
		return []Match{}, nil
	}

	if opts.Summarized {
		c.summarizeMatches(ctx, matches)
	}

	return matches, nil
}

// collectMatches converts raw index hits into Matches, dropping those under
// the threshold and normalizing passage text from metadata.
func collectMatches(raw []*pinecone.ScoredVector, threshold float64) []Match {
	matches := make([]Match, 0, len(raw))
	for _, scored := range raw {
		if scored == nil || scored.Vector == nil {
			continue
		}
		if float64(scored.Score) < threshold {
			continue
		}

		var metadata map[string]any
		if scored.Vector.Metadata != nil {
			metadata = scored.Vector.Metadata.AsMap()
		}

		matches = append(matches, Match{
			ID:       scored.Vector.Id,
			Score:    float64(scored.Score),
			Text:     passageText(metadata),
			Metadata: metadata,
		})
	}
	return matches
}

// passageText resolves the indexed passage from match metadata. Some indexed
// rows carry the passage under "Text" and others under "text"; a populated
// "Text" wins. Legacy quirk of the indexing pipeline, kept as-is.
func passageText(metadata map[string]any) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata["Text"].(string); ok && value != "" {
		return value
	}
	if value, ok := metadata["text"].(string); ok {
		return value
	}
	return ""
}

func (c *Client) summarizeMatches(ctx context.Context, matches []Match) {
	if c.summarizer == nil {
		c.logger.Warn().Msg("summarization requested without a summarizer")
		return
	}

	for i := range matches {
		if matches[i].Text == "" {
			continue
		}
		summary, err := c.summarizer.GenerateSummary(ctx, matches[i].Text)
		if err != nil {
			c.logger.Warn().Err(err).Str("match_id", matches[i].ID).Msg("passage summary failed, keeping original text")
			continue
		}
		matches[i].Text = summary
	}
}
