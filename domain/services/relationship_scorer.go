package services

import (
	"math"

	"screengraph-backend/domain/core/entities"
)

// RelationshipScorer computes a pairwise relationship score between two
// content items. Implementations must be pure and deterministic.
type RelationshipScorer interface {
	// Score returns a fused relationship edge, or nil when the fused
	// confidence falls below the configured minimum. Callers must not pass
	// the same item twice; identical ids are never scored.
	Score(a, b *entities.ContentItem) *entities.RelationshipEdge
}

// SignalWeights controls how the independent signals are fused.
// The defaults are starting points, not validated ground truth; they are
// overridable through the runtime tuning file.
type SignalWeights struct {
	Entity   float64
	Temporal float64
	Content  float64
}

// ScorerConfig configures relationship scoring
type ScorerConfig struct {
	Weights SignalWeights

	// MinConfidence is the fused-score floor below which no edge is emitted,
	// keeping the graph sparse
	MinConfidence float64

	// TemporalWindowDays bounds the temporal-proximity signal; items further
	// apart than this contribute ~0
	TemporalWindowDays float64

	// FuzzyMatchFloor is the minimum edit similarity for a fuzzy entity match
	// to count at all
	FuzzyMatchFloor float64

	// CompositeMargin labels an edge composite when the runner-up signal is
	// within this margin of the winner
	CompositeMargin float64

	// ContentCap limits how much the free-text signal can contribute, so OCR
	// noise never dominates typed entities
	ContentCap float64

	// KindWeights weights entity kinds by how identifying a shared value is
	KindWeights map[entities.EntityKind]float64
}

// DefaultScorerConfig returns balanced scoring defaults
func DefaultScorerConfig() *ScorerConfig {
	return &ScorerConfig{
		Weights: SignalWeights{
			Entity:   0.5,
			Temporal: 0.2,
			Content:  0.3,
		},
		MinConfidence:      0.3,
		TemporalWindowDays: 14,
		FuzzyMatchFloor:    0.8,
		CompositeMargin:    0.05,
		ContentCap:         0.8,
		KindWeights: map[entities.EntityKind]float64{
			entities.EntityKindPerson:       1.0,
			entities.EntityKindOrganization: 1.0,
			entities.EntityKindEmail:        1.0,
			entities.EntityKindPhone:        1.0,
			entities.EntityKindURL:          0.9,
			entities.EntityKindPlace:        0.8,
			entities.EntityKindDocumentType: 0.6,
			entities.EntityKindDate:         0.5,
			entities.EntityKindObject:       0.4,
			entities.EntityKindColor:        0.2,
		},
	}
}

// DefaultRelationshipScorer fuses entity overlap, temporal proximity and
// text similarity into a single confidence
type DefaultRelationshipScorer struct {
	config       *ScorerConfig
	textAnalyzer TextAnalyzer
}

// NewDefaultRelationshipScorer creates a scorer with the given configuration
func NewDefaultRelationshipScorer(config *ScorerConfig, textAnalyzer TextAnalyzer) *DefaultRelationshipScorer {
	if config == nil {
		config = DefaultScorerConfig()
	}
	if textAnalyzer == nil {
		textAnalyzer = NewDefaultTextAnalyzer()
	}
	return &DefaultRelationshipScorer{
		config:       config,
		textAnalyzer: textAnalyzer,
	}
}

// Score computes the fused relationship edge between two items.
//
// Fusion is a weighted sum renormalized over the signals that are actually
// available for the pair: a pair of screenshots with no OCR text at all is
// judged on entities and time alone instead of being dragged down by an
// absent signal. Temporal proximity never stands alone; without entity or
// content evidence its contribution enters unnormalized and stays below the
// edge threshold.
func (s *DefaultRelationshipScorer) Score(a, b *entities.ContentItem) *entities.RelationshipEdge {
	if a == nil || b == nil || a.ID() == b.ID() {
		return nil
	}

	breakdown := entities.SignalBreakdown{
		Entity:   s.entityOverlap(a, b),
		Temporal: s.temporalProximity(a, b),
		Content:  s.contentSimilarity(a, b),
	}

	w := s.config.Weights
	entityAvailable := len(a.EntitiesByKind()) > 0 && len(b.EntitiesByKind()) > 0
	contentAvailable := len(s.textAnalyzer.Keywords(a.Text())) > 0 && len(s.textAnalyzer.Keywords(b.Text())) > 0

	contributions := signalContributions{}
	weightTotal := 0.0
	if entityAvailable {
		contributions.entity = breakdown.Entity * w.Entity
		weightTotal += w.Entity
	}
	if contentAvailable {
		contributions.content = breakdown.Content * w.Content
		weightTotal += w.Content
	}
	contributions.temporal = breakdown.Temporal * w.Temporal
	if entityAvailable || contentAvailable {
		weightTotal += w.Temporal
	}

	fused := contributions.entity + contributions.temporal + contributions.content
	if weightTotal > 0 {
		fused /= weightTotal
	}
	fused = math.Min(math.Max(fused, 0), 1)

	if fused < s.config.MinConfidence {
		return nil
	}

	edge, err := entities.NewRelationshipEdge(a.ID(), b.ID(), s.classify(contributions), fused, breakdown)
	if err != nil {
		// only reachable on a self-edge, which is filtered above
		return nil
	}
	return edge
}

// signalContributions holds the weighted per-signal contributions used for
// fusion and type labeling
type signalContributions struct {
	entity   float64
	temporal float64
	content  float64
}

// entityOverlap scores shared typed entities. For each kind present in both
// items, every entity on the smaller side is matched against the best
// counterpart on the other side; matches are weighted by kind importance and
// by the minimum extraction confidence of the pair.
func (s *DefaultRelationshipScorer) entityOverlap(a, b *entities.ContentItem) float64 {
	byKindA := a.EntitiesByKind()
	byKindB := b.EntitiesByKind()
	if len(byKindA) == 0 || len(byKindB) == 0 {
		return 0
	}

	var weightedSum, weightTotal float64
	for kind, entsA := range byKindA {
		entsB, shared := byKindB[kind]
		kindWeight := s.kindWeight(kind)
		if kindWeight == 0 {
			continue
		}
		// kinds present on either side count toward the denominator so one
		// shared color among many disjoint people stays a weak signal
		weightTotal += kindWeight
		if !shared {
			continue
		}
		weightedSum += kindWeight * s.kindOverlap(entsA, entsB)
	}
	for kind := range byKindB {
		if _, shared := byKindA[kind]; !shared {
			weightTotal += s.kindWeight(kind)
		}
	}

	if weightTotal == 0 {
		return 0
	}
	return math.Min(weightedSum/weightTotal, 1)
}

// kindOverlap matches entities of one kind across the two items. Best-match
// means are computed in both directions and averaged, so the score does not
// depend on which item the caller passes first.
func (s *DefaultRelationshipScorer) kindOverlap(entsA, entsB []entities.Entity) float64 {
	return (s.bestMatchMean(entsA, entsB) + s.bestMatchMean(entsB, entsA)) / 2
}

// bestMatchMean returns the mean best-match score of entsA entities against
// their closest counterparts in entsB
func (s *DefaultRelationshipScorer) bestMatchMean(entsA, entsB []entities.Entity) float64 {
	var total float64
	for _, ea := range entsA {
		va := normalizeEntityValue(ea.Value)
		if va == "" {
			continue
		}
		var best float64
		for _, eb := range entsB {
			vb := normalizeEntityValue(eb.Value)
			if vb == "" {
				continue
			}
			match := s.valueMatch(va, vb)
			if match == 0 {
				continue
			}
			score := match * math.Min(ea.Confidence, eb.Confidence)
			if score > best {
				best = score
			}
		}
		total += best
	}
	return total / float64(len(entsA))
}

// valueMatch scores two normalized values: exact match is 1.0, close fuzzy
// matches score proportionally, everything below the floor scores 0
func (s *DefaultRelationshipScorer) valueMatch(a, b string) float64 {
	if a == b {
		return 1.0
	}
	sim := editSimilarity(a, b)
	if sim < s.config.FuzzyMatchFloor {
		return 0
	}
	return sim
}

// temporalProximity scores capture-time closeness: 1.0 on the same calendar
// day, exponential decay toward 0 across the configured window
func (s *DefaultRelationshipScorer) temporalProximity(a, b *entities.ContentItem) float64 {
	if s.config.TemporalWindowDays <= 0 {
		return 0
	}
	if a.SameCalendarDay(b) {
		return 1.0
	}

	gapDays := math.Abs(a.CapturedAt().Sub(b.CapturedAt()).Hours()) / 24
	if gapDays >= s.config.TemporalWindowDays {
		return 0
	}
	// halve roughly every quarter of the window
	halfLife := s.config.TemporalWindowDays / 4
	return math.Exp(-gapDays * math.Ln2 / halfLife)
}

// contentSimilarity scores token overlap between the free-text blobs,
// capped so noisy OCR text cannot dominate entity evidence
func (s *DefaultRelationshipScorer) contentSimilarity(a, b *entities.ContentItem) float64 {
	ka := s.textAnalyzer.Keywords(a.Text())
	kb := s.textAnalyzer.Keywords(b.Text())
	if len(ka) == 0 || len(kb) == 0 {
		return 0
	}

	intersection := 0
	union := len(kb)
	for token := range ka {
		if kb[token] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return math.Min(float64(intersection)/float64(union), s.config.ContentCap)
}

// classify labels the edge by its dominant weighted contribution; near-ties
// are composite. Priority on exact ties follows declaration order:
// entity-shared > temporal-adjacent > content-similar.
func (s *DefaultRelationshipScorer) classify(c signalContributions) entities.RelationType {
	type labeled struct {
		score float64
		t     entities.RelationType
	}
	ranked := []labeled{
		{c.entity, entities.RelationEntityShared},
		{c.temporal, entities.RelationTemporalAdjacent},
		{c.content, entities.RelationContentSimilar},
	}

	winner := ranked[0]
	for _, candidate := range ranked[1:] {
		if candidate.score > winner.score {
			winner = candidate
		}
	}
	for _, candidate := range ranked {
		if candidate.t == winner.t {
			continue
		}
		if winner.score-candidate.score < s.config.CompositeMargin && candidate.score > 0 {
			return entities.RelationComposite
		}
	}
	return winner.t
}

func (s *DefaultRelationshipScorer) kindWeight(kind entities.EntityKind) float64 {
	if w, ok := s.config.KindWeights[kind]; ok {
		return w
	}
	// unknown kinds still participate, at a conservative weight
	return 0.3
}
