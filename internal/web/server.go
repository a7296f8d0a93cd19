package web

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"finqa/internal/domain"
	"finqa/internal/logging"
	"finqa/internal/service"
)

// AskPort is the web-facing subset of the RAG service.
type AskPort interface {
	Ask(ctx context.Context, url, query string) service.Outcome
}

const missingInput = "Please provide both an article URL and a question."

// Server serves the HTML form and its JSON counterpart.
type Server struct {
	app *fiber.App
	svc AskPort
	log *zap.Logger
}

// NewServer wires the routes.
func NewServer(svc AskPort, log *zap.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "finqa",
			DisableStartupMessage: true,
		}),
		svc: svc,
		log: logging.OrNop(log).Named("web"),
	}
	s.app.Get("/health", s.health)
	s.app.Get("/", s.form)
	s.app.Post("/ask", s.askForm)
	s.app.Post("/api/ask", s.askJSON)
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown is called or the listener fails.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

type pageData struct {
	URL      string
	Question string
	Error    string
	Answer   string
	Preview  string
}

func (s *Server) form(c *fiber.Ctx) error {
	return s.render(c, http.StatusOK, pageData{})
}

func (s *Server) askForm(c *fiber.Ctx) error {
	data := pageData{
		URL:      strings.TrimSpace(c.FormValue("url")),
		Question: strings.TrimSpace(c.FormValue("question")),
	}
	if data.URL == "" || data.Question == "" {
		data.Error = missingInput
		return s.render(c, http.StatusBadRequest, data)
	}

	out := s.svc.Ask(c.UserContext(), data.URL, data.Question)
	data.Preview = out.Preview
	if out.Err != nil {
		data.Error = "Error: " + out.Err.Error()
		return s.render(c, statusFor(out.Err), data)
	}
	data.Answer = out.Answer.Text
	return s.render(c, http.StatusOK, data)
}

type askRequest struct {
	URL      string `json:"url"`
	Question string `json:"question"`
}

type askResponse struct {
	RequestID string   `json:"request_id"`
	Answer    string   `json:"answer,omitempty"`
	Context   []string `json:"context,omitempty"`
	Preview   string   `json:"preview,omitempty"`
	Error     string   `json:"error,omitempty"`
	Kind      string   `json:"kind,omitempty"`
}

func (s *Server) askJSON(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(askResponse{Error: "invalid json"})
	}
	req.URL = strings.TrimSpace(req.URL)
	req.Question = strings.TrimSpace(req.Question)
	if req.URL == "" || req.Question == "" {
		return c.Status(http.StatusBadRequest).JSON(askResponse{Error: missingInput})
	}

	out := s.svc.Ask(c.UserContext(), req.URL, req.Question)
	resp := askResponse{RequestID: out.RequestID, Preview: out.Preview}
	if out.Err != nil {
		resp.Error = out.Err.Error()
		resp.Kind = domain.KindOf(out.Err).String()
		return c.Status(statusFor(out.Err)).JSON(resp)
	}
	resp.Answer = out.Answer.Text
	resp.Context = out.Answer.Context
	return c.JSON(resp)
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindFetch, domain.KindNoArticle:
		return http.StatusUnprocessableEntity
	case domain.KindGenerate:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) render(c *fiber.Ctx, status int, data pageData) error {
	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		s.log.Error("render page", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Finance Article Q&amp;A</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
input { width: 100%; margin-bottom: 1rem; }
.error { color: #b00020; }
.answer { background: #eef7ee; padding: 1rem; white-space: pre-wrap; }
pre { white-space: pre-wrap; }
</style>
</head>
<body>
<h1>Finance Article Question &amp; Answer</h1>
<p>Enter a finance article URL and a question to get an AI-generated answer based on the article content.</p>
<form method="post" action="/ask">
<label>Article URL <input name="url" value="{{.URL}}"></label>
<label>Your Question <input name="question" value="{{.Question}}"></label>
<button type="submit">Get Answer</button>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Answer}}<h2>Answer:</h2><div class="answer">{{.Answer}}</div>{{end}}
{{if .Preview}}<details><summary>View Article Preview</summary><pre>{{.Preview}}</pre></details>{{end}}
</body>
</html>
`))
