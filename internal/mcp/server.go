package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/descriptions"
	"github.com/a3tai/mcp-pdf-forms/internal/filler"
	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
	"github.com/a3tai/mcp-pdf-forms/internal/security"
	"github.com/a3tai/mcp-pdf-forms/internal/service"
)

const instructions = `Design field templates over PDF pages and fill them in.
Open a designer or filler session first; every other tool takes its session id.
File paths are relative to the server working directory.`

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *service.Service
	paths     *security.PathValidator
	mcpServer *server.MCPServer
	handlers  map[string]server.ToolHandlerFunc
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *service.Service, paths *security.PathValidator) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if paths == nil {
		return nil, fmt.Errorf("path validator cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool set is fixed
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	s := &Server{
		config:    cfg,
		service:   svc,
		paths:     paths,
		mcpServer: mcpServer,
		handlers:  make(map[string]server.ToolHandlerFunc),
		logger:    zap.L().Named("mcp"),
	}

	s.registerTools()

	return s, nil
}

// MCPServer exposes the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ToolNames lists the registered tools in alphabetical order.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler returns the handler registered for a tool, or nil.
func (s *Server) Handler(name string) server.ToolHandlerFunc {
	return s.handlers[name]
}

func (s *Server) addTool(name string, handler server.ToolHandlerFunc, opts ...mcp.ToolOption) {
	opts = append([]mcp.ToolOption{mcp.WithDescription(descriptions.GetToolDescription(name))}, opts...)
	handler = s.logged(name, handler)
	s.mcpServer.AddTool(mcp.NewTool(name, opts...), handler)
	s.handlers[name] = handler
}

// logged records failed tool calls at debug level; stdio clients see them
// as tool errors already.
func (s *Server) logged(name string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := handler(ctx, request)
		if err == nil && result != nil && result.IsError {
			s.logger.Debug("tool call failed", zap.String("tool", name), zap.Any("arguments", request.GetArguments()))
		}
		return result, err
	}
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session",
		mcp.Required(),
		mcp.Description("Session id returned by designer_open or filler_open"),
	)
}

func rectArgs(verb string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("x", mcp.Description("Left edge in canvas pixels"+verb)),
		mcp.WithNumber("y", mcp.Description("Top edge in canvas pixels"+verb)),
		mcp.WithNumber("width", mcp.Description("Width in canvas pixels"+verb)),
		mcp.WithNumber("height", mcp.Description("Height in canvas pixels"+verb)),
	}
}

func fieldTypeNames() []string {
	names := make([]string, len(form.FieldTypes))
	for i, t := range form.FieldTypes {
		names[i] = string(t)
	}
	return names
}

// fieldArgs are the field properties shared by add and update.
func fieldArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("label", mcp.Description("Label shown on the form")),
		mcp.WithString("type", mcp.Enum(fieldTypeNames()...), mcp.Description("Field type")),
		mcp.WithBoolean("required", mcp.Description("Whether a value must be entered")),
		mcp.WithArray("options",
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("Choices of a select or checkbox field"),
		),
		mcp.WithObject("list_config",
			mcp.Properties(map[string]any{
				"minItems": map[string]any{"type": "integer"},
				"maxItems": map[string]any{"type": "integer"},
				"columns": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":    map[string]any{"type": "string"},
							"label": map[string]any{"type": "string"},
							"type":  map[string]any{"type": "string"},
						},
					},
				},
			}),
			mcp.Description("Row limits and columns of a list field"),
		),
		mcp.WithNumber("page", mcp.Description("1-based page the field is stamped on (default 1)")),
	}
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Sessions
	s.addTool("designer_open", s.handleDesignerOpen)
	s.addTool("filler_open", s.handleFillerOpen)
	s.addTool("session_close", s.handleSessionClose, sessionArg())

	// Designer
	s.addTool("designer_load_pdf", s.handleDesignerLoadPDF,
		sessionArg(),
		mcp.WithString("path", mcp.Required(), mcp.Description("PDF file, relative to the working directory")),
	)
	s.addTool("designer_begin_drawing", s.handleDesignerBeginDrawing, sessionArg())
	s.addTool("designer_pointer", s.handleDesignerPointer,
		sessionArg(),
		mcp.WithString("action", mcp.Required(), mcp.Enum(service.PointerDown, service.PointerMove, service.PointerUp),
			mcp.Description("Pointer event")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Canvas x in pixels")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Canvas y in pixels")),
	)
	addField := append([]mcp.ToolOption{
		sessionArg(),
		mcp.WithString("id", mcp.Description("Unique field id (default field_<n>)")),
	}, fieldArgs()...)
	addField = append(addField, rectArgs(" (all four or none; default is the last drawn rectangle)")...)
	s.addTool("designer_add_field", s.handleDesignerAddField, addField...)
	s.addTool("designer_cancel_field", s.handleDesignerCancelField, sessionArg())
	updateField := append([]mcp.ToolOption{
		sessionArg(),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the field to change")),
		mcp.WithString("new_id", mcp.Description("New unique id")),
	}, fieldArgs()...)
	updateField = append(updateField, rectArgs(" (all four or none)")...)
	s.addTool("designer_update_field", s.handleDesignerUpdateField, updateField...)
	s.addTool("designer_remove_field", s.handleDesignerRemoveField,
		sessionArg(),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the field to remove")),
	)
	s.addTool("designer_undo", s.handleDesignerUndo, sessionArg())
	s.addTool("designer_template", s.handleDesignerTemplate, sessionArg())
	s.addTool("designer_export", s.handleDesignerExport, sessionArg())
	s.addTool("designer_import_template", s.handleDesignerImportTemplate,
		sessionArg(),
		mcp.WithString("path", mcp.Required(), mcp.Description("Template JSON file, relative to the working directory")),
	)
	s.addTool("designer_import_acroform", s.handleDesignerImportAcroForm, sessionArg())
	s.addTool("designer_preview", s.handleDesignerPreview, sessionArg())
	s.addTool("designer_status", s.handleDesignerStatus, sessionArg())

	// Filler
	s.addTool("filler_load_template", s.handleFillerLoadTemplate,
		sessionArg(),
		mcp.WithString("path", mcp.Required(), mcp.Description("Template JSON file, relative to the working directory")),
	)
	s.addTool("filler_load_pdf", s.handleFillerLoadPDF,
		sessionArg(),
		mcp.WithString("path", mcp.Required(), mcp.Description("PDF file, relative to the working directory")),
	)
	s.addTool("filler_set_value", s.handleFillerSetValue,
		sessionArg(),
		mcp.WithString("id", mcp.Required(), mcp.Description("Field id")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Value to enter")),
	)
	s.addTool("filler_set_values", s.handleFillerSetValues,
		sessionArg(),
		mcp.WithObject("values", mcp.Required(), mcp.Description("Field id to string value, or to an array of options for checkbox fields")),
	)
	s.addTool("filler_toggle_option", s.handleFillerToggleOption,
		sessionArg(),
		mcp.WithString("id", mcp.Required(), mcp.Description("Checkbox field id")),
		mcp.WithString("option", mcp.Required(), mcp.Description("Option to toggle")),
		mcp.WithBoolean("checked", mcp.Required(), mcp.Description("true to check, false to uncheck")),
	)
	s.addTool("filler_set_image", s.handleFillerSetImage,
		sessionArg(),
		mcp.WithString("id", mcp.Required(), mcp.Description("Image field id")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Image file, relative to the working directory")),
	)
	s.addTool("filler_clear_value", s.handleFillerClearValue,
		sessionArg(),
		mcp.WithString("id", mcp.Required(), mcp.Description("Field id")),
	)
	s.addTool("filler_validate", s.handleFillerValidate, sessionArg())
	s.addTool("filler_generate", s.handleFillerGenerate, sessionArg())
	s.addTool("filler_preview", s.handleFillerPreview, sessionArg())
	s.addTool("filler_status", s.handleFillerStatus, sessionArg())

	// Server
	s.addTool("forms_server_info", s.handleFormsServerInfo)
}

// jsonResult renders a heading followed by v as indented JSON.
func jsonResult(heading string, v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to encode result", err)
	}
	return mcp.NewToolResultText(heading + "\n\n" + string(data))
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func pngResult(text string, png []byte) *mcp.CallToolResult {
	return mcp.NewToolResultImage(text, base64.StdEncoding.EncodeToString(png), output.ContentTypePNG)
}

// readFile loads a file argument from inside the working directory.
func (s *Server) readFile(request mcp.CallToolRequest) ([]byte, string, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return nil, "", err
	}
	return s.paths.ReadFile(path, s.config.MaxFileSize)
}

// Handler functions
func (s *Server) handleDesignerOpen(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.service.OpenDesigner()
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fmt.Sprintf("Designer session %s opened. Load a PDF with designer_load_pdf.", info.ID), info), nil
}

func (s *Server) handleFillerOpen(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.service.OpenFiller()
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fmt.Sprintf("Filler session %s opened. Load a template with filler_load_template.", info.ID), info), nil
}

func (s *Server) handleSessionClose(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session")
	if err != nil {
		return errorResult(err), nil
	}
	if err := s.service.CloseSession(id); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s closed", id)), nil
}

func (s *Server) handleDesignerLoadPDF(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session")
	if err != nil {
		return errorResult(err), nil
	}
	data, path, err := s.readFile(request)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := s.service.DesignerLoadPDF(ctx, id, filepath.Base(path), data)
	if err != nil {
		return errorResult(err), nil
	}
	heading := fmt.Sprintf("Loaded %s: %d page(s), canvas %dx%d px at scale %.2f",
		result.Document, result.Pages, result.CanvasWidth, result.CanvasHeight, result.Scale)
	return jsonResult(heading, result), nil
}

func (s *Server) handleDesignerBeginDrawing(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	if _, err := s.service.DesignerBeginDrawing(req); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText("Drawing armed. Send designer_pointer down, move and up."), nil
}

func (s *Server) handleDesignerPointer(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.PointerRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	result, err := s.service.DesignerPointer(req)
	if err != nil {
		return errorResult(err), nil
	}

	var heading string
	switch {
	case result.Rect != nil:
		heading = fmt.Sprintf("Rectangle %s drawn. Describe it with designer_add_field.", result.Rect)
	case result.Discarded:
		heading = "Rectangle too small, discarded."
	case result.Live != nil:
		heading = fmt.Sprintf("Drawing %s", result.Live)
	default:
		heading = "No gesture in progress."
	}
	return jsonResult(heading, result), nil
}

func (s *Server) handleDesignerAddField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.FieldRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	result, err := s.service.DesignerAddField(req)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fmt.Sprintf("Field %s added (%d total)", result.Field.ID, len(result.Fields)), result), nil
}

func (s *Server) handleDesignerCancelField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	if err := s.service.DesignerCancelField(req); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText("Field draft discarded"), nil
}

func (s *Server) handleDesignerUpdateField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.UpdateFieldRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	result, err := s.service.DesignerUpdateField(req)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fmt.Sprintf("Field %s updated", result.Field.ID), result), nil
}

func (s *Server) handleDesignerRemoveField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.FieldIDRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	result, err := s.service.DesignerRemoveField(req)
	if err != nil {
		return errorResult(err), nil
	}
	heading := fmt.Sprintf("Field %s removed", req.ID)
	if !result.Changed {
		heading = fmt.Sprintf("No field %s, nothing removed", req.ID)
	}
	return jsonResult(heading, result), nil
}

func (s *Server) handleDesignerUndo(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	result, err := s.service.DesignerUndo(req)
	if err != nil {
		return errorResult(err), nil
	}
	heading := "Last change undone"
	if !result.Changed {
		heading = "Nothing to undo"
	}
	return jsonResult(heading, result), nil
}

func (s *Server) handleDesignerImportAcroForm(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	result, err := s.service.DesignerImportAcroForm(req)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fmt.Sprintf("Imported %d form field(s), skipped %d", len(result.Added), len(result.Skipped)), result), nil
}

func (s *Server) handleDesignerTemplate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	tpl, err := s.service.DesignerTemplate(req)
	if err != nil {
		return errorResult(err), nil
	}
	data, err := tpl.Marshal()
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleDesignerExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	result, err := s.service.DesignerExport(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fmt.Sprintf("Template with %d field(s) written to %s", result.Fields, result.Object.Location), result), nil
}

func (s *Server) handleDesignerImportTemplate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session")
	if err != nil {
		return errorResult(err), nil
	}
	data, path, err := s.readFile(request)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := s.service.DesignerImportTemplate(id, data)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fmt.Sprintf("Imported %d field(s) from %s", len(result.Fields), filepath.Base(path)), result), nil
}

func (s *Server) handleDesignerPreview(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	png, err := s.service.DesignerPreview(req)
	if err != nil {
		return errorResult(err), nil
	}
	return pngResult("Page 1 with field overlay", png), nil
}

func (s *Server) handleDesignerStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	status, err := s.service.DesignerStatus(req)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult("Designer status", status), nil
}

func (s *Server) handleFillerLoadTemplate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session")
	if err != nil {
		return errorResult(err), nil
	}
	data, path, err := s.readFile(request)
	if err != nil {
		return errorResult(err), nil
	}
	status, err := s.service.FillerLoadTemplate(id, data)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fmt.Sprintf("Loaded template %s with %d field(s)", filepath.Base(path), status.Fields), status), nil
}

func (s *Server) handleFillerLoadPDF(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session")
	if err != nil {
		return errorResult(err), nil
	}
	data, path, err := s.readFile(request)
	if err != nil {
		return errorResult(err), nil
	}
	status, err := s.service.FillerLoadPDF(ctx, id, filepath.Base(path), data)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(fmt.Sprintf("Loaded %s", status.Document), status), nil
}

func (s *Server) validationResult(result *service.ValidationResult, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(formatValidation(result), result), nil
}

// formatValidation summarises the errors in field id order.
func formatValidation(result *service.ValidationResult) string {
	if result.Valid {
		return "All fields are valid"
	}
	ids := make([]string, 0, len(result.Errors))
	for id := range result.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "%d field(s) need attention:", len(ids))
	for _, id := range ids {
		fmt.Fprintf(&b, "\n• %s: %s", id, result.Errors[id])
	}
	return b.String()
}

func (s *Server) handleFillerSetValue(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SetValueRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	return s.validationResult(s.service.FillerSetValue(req))
}

func (s *Server) handleFillerSetValues(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SetValuesRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	return s.validationResult(s.service.FillerSetValues(req))
}

func (s *Server) handleFillerToggleOption(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.ToggleOptionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	return s.validationResult(s.service.FillerToggleOption(req))
}

func (s *Server) handleFillerSetImage(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session")
	if err != nil {
		return errorResult(err), nil
	}
	field, err := request.RequireString("id")
	if err != nil {
		return errorResult(err), nil
	}
	data, path, err := s.readFile(request)
	if err != nil {
		return errorResult(err), nil
	}

	file := filler.ImageFile{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:        data,
	}
	return s.validationResult(s.service.FillerSetImage(id, field, file))
}

func (s *Server) handleFillerClearValue(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.FieldIDRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	return s.validationResult(s.service.FillerClearValue(req))
}

func (s *Server) handleFillerValidate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	return s.validationResult(s.service.FillerValidate(req))
}

func (s *Server) handleFillerGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	result, err := s.service.FillerGenerate(ctx, req)
	if err != nil {
		return errorResult(err), nil
	}
	heading := fmt.Sprintf("Filled PDF written to %s", result.Object.Location)
	if len(result.Fallbacks) > 0 {
		heading += fmt.Sprintf("\nImages stamped as placeholder text: %s", strings.Join(result.Fallbacks, ", "))
	}
	return jsonResult(heading, result), nil
}

func (s *Server) handleFillerPreview(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	png, err := s.service.FillerPreview(req)
	if err != nil {
		return errorResult(err), nil
	}
	return pngResult("Page 1 with entered values", png), nil
}

func (s *Server) handleFillerStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req service.SessionRequest
	if err := request.BindArguments(&req); err != nil {
		return errorResult(err), nil
	}
	status, err := s.service.FillerStatus(req)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult("Filler status", status), nil
}

func (s *Server) handleFormsServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatServerInfo(s.service.ServerInfo())), nil
}

func formatServerInfo(result *service.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Working Directory: %s\n", result.Directory)
	if result.OutputDir != "" {
		text += fmt.Sprintf("📤 Output: %s (%s)\n", result.Output, result.OutputDir)
	} else {
		text += fmt.Sprintf("📤 Output: %s (bucket %s)\n", result.Output, result.Bucket)
	}
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🔍 Canvas Scale: %.2f, minimum rectangle %.0f px\n\n", result.Scale, result.MinRect)

	if len(result.Files) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d files):\n", len(result.Files))
		for i, file := range result.Files {
			text += fmt.Sprintf("   %d. %s [%s] (%d bytes)\n", i+1, file.Name, file.Kind, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDFs or templates found\n\n"
	}

	if len(result.Sessions) > 0 {
		text += fmt.Sprintf("🗂️  Open Sessions (%d):\n", len(result.Sessions))
		for _, sess := range result.Sessions {
			text += fmt.Sprintf("   • %s %s\n", sess.Kind, sess.ID)
		}
		text += "\n"
	}

	types := make([]string, len(result.FieldTypes))
	for i, t := range result.FieldTypes {
		types[i] = string(t)
	}
	text += fmt.Sprintf("🧩 Field Types: %s\n\n", strings.Join(types, ", "))

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.Tools {
		text += fmt.Sprintf("• %s: %s\n", tool.Name, tool.Description)
	}
	return text
}

// Run serves MCP over standard input and output until ctx ends or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve speaks MCP over the given streams.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("serving MCP over stdio",
		zap.String("directory", s.config.Directory),
		zap.String("output", s.config.Output),
	)

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
