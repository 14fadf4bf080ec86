// Package api implements the REST API: numeric operations, function calls,
// chain definitions, documents and chain evaluation.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
	"github.com/lemonberrylabs/numchain/pkg/parser"
	"github.com/lemonberrylabs/numchain/pkg/stdlib"
	"github.com/lemonberrylabs/numchain/pkg/store"
	"github.com/lemonberrylabs/numchain/pkg/types"
)

// Server is the REST API server.
type Server struct {
	app     *fiber.App
	store   *store.Store
	funcs   *stdlib.Registry
	globals host.Value
}

// Option configures a Server.
type Option func(*fiber.App)

// WithAccessLog writes one access log line per request to w.
func WithAccessLog(w io.Writer) Option {
	return func(app *fiber.App) {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
			Output: w,
		}))
	}
}

// New creates a new API server.
func New(s *store.Store, opts ...Option) *Server {
	funcs := stdlib.NewRegistry()
	srv := &Server{
		store:   s,
		funcs:   funcs,
		globals: funcs.Globals(),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	for _, opt := range opts {
		opt(app)
	}

	// Numeric API
	app.Post("/v1/arith", srv.arith)
	app.Post("/v1/compare", srv.compare)
	app.Post("/v1/classify", srv.classify)
	app.Post("/v1/same-value", srv.sameValue)
	app.Get("/v1/constants", srv.constants)
	app.Post("/v1/parse", srv.parse)

	// Functions API
	app.Get("/v1/functions", srv.listFunctions)
	app.Post("/v1/functions/:name", srv.callFunction)

	// Chains API
	app.Post("/v1/chains", srv.createChain)
	app.Get("/v1/chains/:chain", srv.getChain)
	app.Get("/v1/chains", srv.listChains)
	app.Patch("/v1/chains/:chain", srv.updateChain)
	app.Delete("/v1/chains/:chain", srv.deleteChain)
	app.Post("/v1/chains/:chain/evaluate", srv.evaluateChain)
	app.Get("/v1/chains/:chain/evaluations", srv.listEvaluations)
	app.Get("/v1/chains/:chain/evaluations/:evaluation", srv.getEvaluation)

	// Documents API
	app.Put("/v1/documents/:document", srv.putDocument)
	app.Get("/v1/documents/:document", srv.getDocument)
	app.Delete("/v1/documents/:document", srv.deleteDocument)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Numeric Handlers ---

type arithRequest struct {
	Op string         `json:"op"`
	A  *numeric.Value `json:"a"`
	B  *numeric.Value `json:"b"`
}

// operand names a numeric body field; a nil v means the field was absent
// or null.
type operand struct {
	name string
	v    *numeric.Value
}

func requireOperands(ops ...operand) error {
	for _, o := range ops {
		if o.v == nil {
			return fmt.Errorf("missing field '%s'", o.name)
		}
	}
	return nil
}

func (s *Server) arith(c *fiber.Ctx) error {
	var req arithRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	op, ok := numeric.ParseOp(req.Op)
	if !ok {
		return errorResponse(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("unknown operator '%s'", req.Op))
	}
	if err := requireOperands(operand{"a", req.A}, operand{"b", req.B}); err != nil {
		return badRequest(c, err)
	}
	result, err := numeric.Apply(op, *req.A, *req.B)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(fiber.Map{"result": result})
}

type pairRequest struct {
	A *numeric.Value `json:"a"`
	B *numeric.Value `json:"b"`
}

func (r pairRequest) check() error {
	return requireOperands(operand{"a", r.A}, operand{"b", r.B})
}

func (s *Server) compare(c *fiber.Ctx) error {
	var req pairRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := req.check(); err != nil {
		return badRequest(c, err)
	}
	cmp, ordered := numeric.Compare(*req.A, *req.B)
	return c.JSON(fiber.Map{"cmp": cmp, "ordered": ordered})
}

func (s *Server) sameValue(c *fiber.Ctx) error {
	var req pairRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := req.check(); err != nil {
		return badRequest(c, err)
	}
	a, b := *req.A, *req.B
	return c.JSON(fiber.Map{
		"sameValue":     numeric.SameValue(a, b),
		"sameValueZero": numeric.SameValueZero(a, b),
		"strictEqual":   numeric.StrictEqual(a, b),
	})
}

type classifyRequest struct {
	Value *numeric.Value `json:"value"`
}

func (s *Server) classify(c *fiber.Ctx) error {
	var req classifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := requireOperands(operand{"value", req.Value}); err != nil {
		return badRequest(c, err)
	}
	return c.JSON(Classification(*req.Value))
}

// Classification reports the domain, text form and predicates of v.
func Classification(v numeric.Value) map[string]any {
	return map[string]any{
		"value":         v,
		"kind":          v.Kind().String(),
		"text":          v.Text(),
		"isNaN":         numeric.IsNaN(v),
		"isFinite":      numeric.IsFinite(v),
		"isInteger":     numeric.IsInteger(v),
		"isSafeInteger": numeric.IsSafeInteger(v),
	}
}

func (s *Server) constants(c *fiber.Ctx) error {
	out := fiber.Map{}
	for _, name := range numeric.ConstantNames() {
		v, _ := numeric.Constant(name)
		out[name] = v
	}
	return c.JSON(fiber.Map{"constants": out})
}

type parseRequest struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	Radix int    `json:"radix"`
}

func (s *Server) parse(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	result, err := ParseText(req.Kind, req.Text, req.Radix)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(fiber.Map{"result": result})
}

// ParseText dispatches to the coercion named by kind: float, int, bigint,
// literal or wire.
func ParseText(kind, text string, radix int) (numeric.Value, error) {
	switch kind {
	case "float":
		return numeric.ParseFloat(text)
	case "int":
		return numeric.ParseInt(text, radix)
	case "bigint":
		return numeric.BigIntFromText(text)
	case "literal":
		return numeric.ParseLiteral(text)
	case "", "wire":
		return numeric.Parse(text)
	}
	return numeric.Value{}, types.NewArgumentError(fmt.Sprintf("unknown parse kind '%s'", kind))
}

// --- Function Handlers ---

func (s *Server) listFunctions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"functions": s.funcs.Names()})
}

// callFunction takes a JSON or YAML body {args: [...]}. Argument values are
// decoded as host values, so big integers need YAML (2n or !bigint).
func (s *Server) callFunction(c *fiber.Ctx) error {
	name := c.Params("name")
	if !s.funcs.Has(name) {
		return errorResponse(c, 404, "NOT_FOUND", fmt.Sprintf("%v '%s'", stdlib.ErrUnknownFunction, name))
	}

	var args []host.Value
	if len(c.Body()) > 0 {
		body, err := host.FromYAML(c.Body())
		if err != nil {
			return badRequest(c, err)
		}
		args, err = argsFromBody(body)
		if err != nil {
			return badRequest(c, err)
		}
	}

	result, err := s.funcs.CallFunction(name, args)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(fiber.Map{"result": result})
}

func argsFromBody(body host.Value) ([]host.Value, error) {
	if body.Type() != host.TypeMap {
		return nil, fmt.Errorf("request body must be an object")
	}
	v, ok := body.AsMap().Get("args")
	if !ok || v.Type() == host.TypeNull {
		return nil, nil
	}
	if v.Type() != host.TypeList {
		return nil, fmt.Errorf("args must be a list")
	}
	return v.AsList(), nil
}

// --- Chain Handlers ---

type createChainRequest struct {
	SourceContents string `json:"sourceContents"`
	Description    string `json:"description"`
}

func (s *Server) createChain(c *fiber.Ctx) error {
	chainID := c.Query("chainId")
	if chainID == "" {
		return errorResponse(c, 400, "INVALID_ARGUMENT", "chainId query parameter is required")
	}
	if !store.ValidID(chainID) {
		return errorResponse(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid chain ID '%s'", chainID))
	}

	var req createChainRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if req.SourceContents == "" {
		return errorResponse(c, 400, "INVALID_ARGUMENT", "sourceContents is required")
	}

	// Validate by parsing the descriptor
	def, err := parser.Parse([]byte(req.SourceContents))
	if err != nil {
		return errorResponse(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid chain descriptor: %v", err))
	}

	description := req.Description
	if description == "" {
		description = def.Description
	}
	ch, err := s.store.CreateChain(chainID, req.SourceContents, description, def.Chain)
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(200).JSON(chainToJSON(ch))
}

func (s *Server) getChain(c *fiber.Ctx) error {
	ch, err := s.store.GetChain(store.ChainName(c.Params("chain")))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(chainToJSON(ch))
}

func (s *Server) listChains(c *fiber.Ctx) error {
	chains := s.store.ListChains()
	items := make([]fiber.Map, len(chains))
	for i, ch := range chains {
		items[i] = chainToJSON(ch)
	}
	return c.JSON(fiber.Map{"chains": items})
}

func (s *Server) updateChain(c *fiber.Ctx) error {
	name := store.ChainName(c.Params("chain"))

	var req createChainRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if req.SourceContents == "" {
		return errorResponse(c, 400, "INVALID_ARGUMENT", "sourceContents is required")
	}
	def, err := parser.Parse([]byte(req.SourceContents))
	if err != nil {
		return errorResponse(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid chain descriptor: %v", err))
	}

	ch, err := s.store.UpdateChain(name, req.SourceContents, req.Description, def.Chain)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(chainToJSON(ch))
}

func (s *Server) deleteChain(c *fiber.Ctx) error {
	if err := s.store.DeleteChain(store.ChainName(c.Params("chain"))); err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"done": true})
}

// --- Evaluation Handlers ---

type evaluateRequest struct {
	Root     json.RawMessage `json:"root"`
	Document string          `json:"document"`
	Globals  bool            `json:"globals"`
	Strict   bool            `json:"strict"`
}

func (s *Server) evaluateChain(c *fiber.Ctx) error {
	name := store.ChainName(c.Params("chain"))
	if _, err := s.store.GetChain(name); err != nil {
		return storeError(c, err)
	}

	var req evaluateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
	}

	sources := 0
	for _, set := range []bool{len(req.Root) > 0, req.Document != "", req.Globals} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return errorResponse(c, 400, "INVALID_ARGUMENT", "only one of root, document and globals may be set")
	}

	root := host.Undefined
	docName := ""
	switch {
	case len(req.Root) > 0:
		v, err := host.FromYAML(req.Root)
		if err != nil {
			return badRequest(c, err)
		}
		root = v
	case req.Document != "":
		docName = store.DocumentName(req.Document)
		doc, err := s.store.GetDocument(docName)
		if err != nil {
			return storeError(c, err)
		}
		root = doc.Value
	case req.Globals:
		root = s.globals
	}

	eval, value, err := s.store.RunEvaluation(name, docName, root, req.Strict)
	if err != nil {
		return storeError(c, err)
	}
	out := evaluationToJSON(eval)
	if eval.HasValue {
		out["value"] = value
	}
	return c.JSON(out)
}

func (s *Server) listEvaluations(c *fiber.Ctx) error {
	name := store.ChainName(c.Params("chain"))
	if _, err := s.store.GetChain(name); err != nil {
		return storeError(c, err)
	}
	evals := s.store.ListEvaluations(name)
	items := make([]fiber.Map, len(evals))
	for i, eval := range evals {
		items[i] = evaluationToJSON(eval)
	}
	return c.JSON(fiber.Map{"evaluations": items})
}

func (s *Server) getEvaluation(c *fiber.Ctx) error {
	name := fmt.Sprintf("%s/evaluations/%s", store.ChainName(c.Params("chain")), c.Params("evaluation"))
	eval, err := s.store.GetEvaluation(name)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(evaluationToJSON(eval))
}

// --- Document Handlers ---

// putDocument stores the request body, JSON or YAML, as a document.
func (s *Server) putDocument(c *fiber.Ctx) error {
	id := c.Params("document")
	if !store.ValidID(id) {
		return errorResponse(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid document ID '%s'", id))
	}
	value, err := host.FromYAML(c.Body())
	if err != nil {
		return badRequest(c, err)
	}
	doc := s.store.PutDocument(id, value)
	return c.JSON(documentToJSON(doc))
}

func (s *Server) getDocument(c *fiber.Ctx) error {
	doc, err := s.store.GetDocument(store.DocumentName(c.Params("document")))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(documentToJSON(doc))
}

func (s *Server) deleteDocument(c *fiber.Ctx) error {
	if err := s.store.DeleteDocument(store.DocumentName(c.Params("document"))); err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"done": true})
}

// --- Directory Loading ---

// LoadDir loads all .yaml, .yml and .json chain descriptors from dir as
// chains, and the files of its documents/ subdirectory as documents. The
// file name (sans extension) becomes the ID.
func (s *Server) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading chains directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		id, ok := fileID(entry)
		if !ok {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("Warning: could not read %q: %v", entry.Name(), err)
			continue
		}

		def, err := parser.Parse(data)
		if err != nil {
			log.Printf("Warning: could not parse %q: %v", entry.Name(), err)
			continue
		}

		if _, err := s.store.CreateChain(id, string(data), def.Description, def.Chain); err != nil {
			log.Printf("Warning: could not load %q: %v", entry.Name(), err)
			continue
		}
		loaded++
		log.Printf("Loaded chain %q from %s", id, entry.Name())
	}
	log.Printf("Loaded %d chain(s) from %s", loaded, dir)

	docsDir := filepath.Join(dir, "documents")
	docs, err := os.ReadDir(docsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading documents directory: %w", err)
	}
	for _, entry := range docs {
		id, ok := fileID(entry)
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(docsDir, entry.Name()))
		if err != nil {
			log.Printf("Warning: could not read %q: %v", entry.Name(), err)
			continue
		}
		value, err := host.FromYAML(data)
		if err != nil {
			log.Printf("Warning: could not parse document %q: %v", entry.Name(), err)
			continue
		}
		s.store.PutDocument(id, value)
		log.Printf("Loaded document %q from %s", id, entry.Name())
	}
	return nil
}

// fileID derives a resource ID from a descriptor file name.
func fileID(entry os.DirEntry) (string, bool) {
	if entry.IsDir() {
		return "", false
	}
	name := entry.Name()
	ext := filepath.Ext(name)
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return "", false
	}

	base := strings.TrimSuffix(name, ext)
	id := strings.ToLower(base)
	if id != base {
		log.Printf("Warning: lowercased ID %q (from file %q)", id, name)
	}
	if !store.ValidID(id) {
		log.Printf("Warning: skipping file %q, invalid ID %q", name, id)
		return "", false
	}
	return id, true
}

// --- Helpers ---

func errorResponse(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return errorResponse(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
}

// engineError reports an engine failure with its tag as the status.
func engineError(c *fiber.Ctx, err error) error {
	if kind := types.KindOf(err); kind != "" {
		return errorResponse(c, 400, kind, err.Error())
	}
	return errorResponse(c, 500, "INTERNAL", err.Error())
}

func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errorResponse(c, 404, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return errorResponse(c, 409, "ALREADY_EXISTS", err.Error())
	}
	return errorResponse(c, 500, "INTERNAL", err.Error())
}

func chainToJSON(ch *store.Chain) fiber.Map {
	return fiber.Map{
		"name":           ch.Name,
		"description":    ch.Description,
		"revisionId":     ch.RevisionID,
		"createTime":     ch.CreateTime.Format(time.RFC3339),
		"updateTime":     ch.UpdateTime.Format(time.RFC3339),
		"sourceContents": ch.SourceContents,
		"steps":          ch.Chain.Len(),
		"path":           ch.Chain.String(),
	}
}

func documentToJSON(doc *store.Document) fiber.Map {
	return fiber.Map{
		"name":       doc.Name,
		"revisionId": doc.RevisionID,
		"updateTime": doc.UpdateTime.Format(time.RFC3339),
		"value":      doc.Value,
	}
}

func evaluationToJSON(eval *store.Evaluation) fiber.Map {
	result := fiber.Map{
		"name":            eval.Name,
		"state":           eval.State,
		"hasValue":        eval.HasValue,
		"steps":           eval.Steps,
		"startTime":       eval.StartTime.Format(time.RFC3339),
		"chainRevisionId": eval.ChainRevisionID,
	}

	if eval.Document != "" {
		result["document"] = eval.Document
	}
	if eval.Result != "" {
		result["result"] = eval.Result
	}
	if eval.Error != nil {
		result["error"] = fiber.Map{
			"kind":    eval.Error.Kind,
			"message": eval.Error.Message,
		}
	}
	if !eval.EndTime.IsZero() {
		result["endTime"] = eval.EndTime.Format(time.RFC3339)
	}
	return result
}
