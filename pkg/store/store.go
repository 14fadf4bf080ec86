// Package store provides in-memory storage for chain definitions, root
// documents and evaluation records.
package store

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lemonberrylabs/numchain/pkg/chain"
	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/types"
)

var (
	// ErrNotFound is wrapped by lookups of missing resources.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is wrapped by creates of existing resources.
	ErrAlreadyExists = errors.New("already exists")
)

// EvaluationState represents the state of an evaluation record.
type EvaluationState string

const (
	EvaluationActive    EvaluationState = "ACTIVE"
	EvaluationSucceeded EvaluationState = "SUCCEEDED"
	EvaluationFailed    EvaluationState = "FAILED"
)

// Chain represents a stored chain definition. The parsed chain is kept
// alongside the source it was parsed from.
type Chain struct {
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	RevisionID     string      `json:"revisionId"`
	CreateTime     time.Time   `json:"createTime"`
	UpdateTime     time.Time   `json:"updateTime"`
	SourceContents string      `json:"sourceContents"`
	Chain          chain.Chain `json:"-"`
}

// Document represents a stored root document.
type Document struct {
	Name       string     `json:"name"`
	RevisionID string     `json:"revisionId"`
	UpdateTime time.Time  `json:"updateTime"`
	Value      host.Value `json:"value"`
}

// Evaluation records one evaluation of a chain.
type Evaluation struct {
	Name            string           `json:"name"`
	State           EvaluationState  `json:"state"`
	Document        string           `json:"document,omitempty"`
	HasValue        bool             `json:"hasValue"`
	Result          string           `json:"result,omitempty"`
	Steps           int              `json:"steps"`
	Error           *EvaluationError `json:"error,omitempty"`
	StartTime       time.Time        `json:"startTime"`
	EndTime         time.Time        `json:"endTime,omitempty"`
	ChainRevisionID string           `json:"chainRevisionId"`

	seq int64
}

// EvaluationError represents the error of a failed evaluation.
type EvaluationError struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// Store is a thread-safe in-memory storage for chains, documents and
// evaluations.
type Store struct {
	mu          sync.RWMutex
	chains      map[string]*Chain
	documents   map[string]*Document
	evaluations map[string]*Evaluation

	// Counters for generating unique IDs
	evalCounter int64
	revCounter  int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		chains:      make(map[string]*Chain),
		documents:   make(map[string]*Document),
		evaluations: make(map[string]*Evaluation),
	}
}

// MaxIDLength is the longest chain or document ID accepted.
const MaxIDLength = 128

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidID reports whether id may name a chain or document.
func ValidID(id string) bool {
	return len(id) <= MaxIDLength && idPattern.MatchString(id)
}

// ChainName returns the resource name of a chain ID.
func ChainName(chainID string) string {
	return "chains/" + chainID
}

// DocumentName returns the resource name of a document ID.
func DocumentName(documentID string) string {
	return "documents/" + documentID
}

func (s *Store) nextRevision() string {
	s.revCounter++
	return fmt.Sprintf("%06d-000", s.revCounter)
}

// CreateChain stores a new chain definition.
func (s *Store) CreateChain(chainID, sourceContents, description string, c chain.Chain) (*Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := ChainName(chainID)
	if _, exists := s.chains[name]; exists {
		return nil, fmt.Errorf("chain '%s' %w", name, ErrAlreadyExists)
	}

	now := time.Now()
	ch := &Chain{
		Name:           name,
		Description:    description,
		RevisionID:     s.nextRevision(),
		CreateTime:     now,
		UpdateTime:     now,
		SourceContents: sourceContents,
		Chain:          c,
	}
	s.chains[name] = ch
	return ch, nil
}

// GetChain retrieves a chain by its full name.
func (s *Store) GetChain(name string) (*Chain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.chains[name]
	if !ok {
		return nil, fmt.Errorf("chain '%s' %w", name, ErrNotFound)
	}
	return ch, nil
}

// ListChains returns all chains sorted by name.
func (s *Store) ListChains() []*Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Chain, 0, len(s.chains))
	for _, ch := range s.chains {
		result = append(result, ch)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// UpdateChain replaces a chain's definition and bumps its revision.
func (s *Store) UpdateChain(name, sourceContents, description string, c chain.Chain) (*Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.chains[name]
	if !ok {
		return nil, fmt.Errorf("chain '%s' %w", name, ErrNotFound)
	}

	updated := *ch
	updated.SourceContents = sourceContents
	updated.Chain = c
	if description != "" {
		updated.Description = description
	}
	updated.RevisionID = s.nextRevision()
	updated.UpdateTime = time.Now()
	s.chains[name] = &updated
	return &updated, nil
}

// DeleteChain removes a chain and its evaluation records.
func (s *Store) DeleteChain(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chains[name]; !ok {
		return fmt.Errorf("chain '%s' %w", name, ErrNotFound)
	}
	delete(s.chains, name)
	prefix := name + "/evaluations/"
	for evalName := range s.evaluations {
		if strings.HasPrefix(evalName, prefix) {
			delete(s.evaluations, evalName)
		}
	}
	return nil
}

// PutDocument creates or replaces a root document.
func (s *Store) PutDocument(documentID string, value host.Value) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &Document{
		Name:       DocumentName(documentID),
		RevisionID: s.nextRevision(),
		UpdateTime: time.Now(),
		Value:      value,
	}
	s.documents[doc.Name] = doc
	return doc
}

// GetDocument retrieves a document by its full name.
func (s *Store) GetDocument(name string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[name]
	if !ok {
		return nil, fmt.Errorf("document '%s' %w", name, ErrNotFound)
	}
	return doc, nil
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[name]; !ok {
		return fmt.Errorf("document '%s' %w", name, ErrNotFound)
	}
	delete(s.documents, name)
	return nil
}

// CreateEvaluation creates a new evaluation record for a chain.
func (s *Store) CreateEvaluation(chainName, documentName string) (*Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.chains[chainName]
	if !ok {
		return nil, fmt.Errorf("chain '%s' %w", chainName, ErrNotFound)
	}

	s.evalCounter++
	eval := &Evaluation{
		Name:            fmt.Sprintf("%s/evaluations/eval-%d", chainName, s.evalCounter),
		State:           EvaluationActive,
		Document:        documentName,
		StartTime:       time.Now(),
		ChainRevisionID: ch.RevisionID,
		seq:             s.evalCounter,
	}
	s.evaluations[eval.Name] = eval
	out := *eval
	return &out, nil
}

// GetEvaluation retrieves an evaluation by name. The returned record is a
// copy.
func (s *Store) GetEvaluation(name string) (*Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eval, ok := s.evaluations[name]
	if !ok {
		return nil, fmt.Errorf("evaluation '%s' %w", name, ErrNotFound)
	}
	out := *eval
	return &out, nil
}

// ListEvaluations returns copies of all evaluations of a chain, oldest
// first.
func (s *Store) ListEvaluations(chainName string) []*Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Evaluation
	prefix := chainName + "/evaluations/"
	for name, eval := range s.evaluations {
		if strings.HasPrefix(name, prefix) {
			out := *eval
			result = append(result, &out)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

// CompleteEvaluation marks an evaluation as succeeded.
func (s *Store) CompleteEvaluation(name string, result host.Value, hasValue bool, steps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	eval, ok := s.evaluations[name]
	if !ok {
		return fmt.Errorf("evaluation '%s' %w", name, ErrNotFound)
	}

	eval.State = EvaluationSucceeded
	eval.EndTime = time.Now()
	eval.HasValue = hasValue
	eval.Steps = steps
	if hasValue {
		b, _ := result.MarshalJSON()
		eval.Result = string(b)
	}
	return nil
}

// FailEvaluation marks an evaluation as failed with an error.
func (s *Store) FailEvaluation(name string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	eval, ok := s.evaluations[name]
	if !ok {
		return fmt.Errorf("evaluation '%s' %w", name, ErrNotFound)
	}

	eval.State = EvaluationFailed
	eval.EndTime = time.Now()
	eval.Error = &EvaluationError{Kind: types.KindOf(err), Message: err.Error()}
	return nil
}

// RunEvaluation evaluates a stored chain against root and records the
// outcome. Engine failures are recorded on the returned evaluation, not
// returned as errors. The value is Undefined unless the evaluation
// produced one.
func (s *Store) RunEvaluation(chainName, documentName string, root host.Value, strict bool) (*Evaluation, host.Value, error) {
	ch, err := s.GetChain(chainName)
	if err != nil {
		return nil, host.Undefined, err
	}
	eval, err := s.CreateEvaluation(chainName, documentName)
	if err != nil {
		return nil, host.Undefined, err
	}

	r := &host.Resolver{Strict: strict}
	value, res, evalErr := r.Evaluate(root, ch.Chain)
	if evalErr != nil {
		err = s.FailEvaluation(eval.Name, evalErr)
	} else {
		err = s.CompleteEvaluation(eval.Name, value, res.HasValue(), res.Steps)
	}
	if err != nil {
		// The chain was deleted mid-evaluation.
		return nil, host.Undefined, err
	}

	eval, err = s.GetEvaluation(eval.Name)
	if err != nil {
		return nil, host.Undefined, err
	}
	if !res.HasValue() {
		value = host.Undefined
	}
	return eval, value, nil
}
