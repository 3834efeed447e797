package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Sessions
	DesignerOpenDescription = `Start a field designer session and return its session id.

**When to use:** Before laying out fields over a PDF. Every other designer_* tool takes the returned session id.

**Common workflows:**
1. Design a template: designer_open → designer_load_pdf → (designer_begin_drawing → designer_pointer down/move/up → designer_add_field)* → designer_export
2. Revise a template: designer_open → designer_load_pdf → designer_import_template → edit → designer_export`

	FillerOpenDescription = `Start a form filler session and return its session id.

**When to use:** Before filling a template in. Every other filler_* tool takes the returned session id.

**Common workflow:** filler_open → filler_load_template → filler_load_pdf → filler_set_value / filler_toggle_option / filler_set_image → filler_validate → filler_generate`

	SessionCloseDescription = `Close a designer or filler session and free its memory.`

	// Designer
	DesignerLoadPDFDescription = `Load a PDF into a designer session and render page 1 as the drawing canvas.

**Why it's useful:** Fields are drawn in canvas pixels of the rendered page; the response reports the canvas size and page size so coordinates can be chosen.

**Best practices:** Fields already defined are kept, so a layout can be moved onto a revised version of the same form. A rejected file leaves the previous document loaded.`

	DesignerBeginDrawingDescription = `Arm the designer for one rectangle gesture.

**When to use:** Right before designer_pointer with action "down". Drawing disarms itself after the gesture ends, whether or not the rectangle was kept.`

	DesignerPointerDescription = `Send a pointer event of the rectangle gesture in canvas pixels.

**Actions:**
• down: anchor the rectangle (only when drawing is armed)
• move: update the live rectangle
• up: finish; rectangles narrower or shorter than the minimum size are discarded

**Examples:**
• "down at 150,300, move to 450,345, up at 450,345" draws a 300×45 box`

	DesignerAddFieldDescription = `Describe the last drawn rectangle (or an explicit x/y/width/height) as a field and add it.

**Defaults:** id field_<n>, label "Field <n>", type text, page 1.

**Types:** text, number, email, date, select, checkbox, textarea, image, list. Select and checkbox fields need options; list fields need list_config.columns.

**Best practices:** Ids must be unique. When the field is rejected the draft stays open; call again with corrected arguments or designer_cancel_field.`

	DesignerCancelFieldDescription = `Discard the open field draft and the last drawn rectangle.`

	DesignerUpdateFieldDescription = `Change an existing field. Arguments left out keep their current value; new_id renames the field.`

	DesignerRemoveFieldDescription = `Remove a field by id. Removing an unknown id is not an error.`

	DesignerUndoDescription = `Revert the most recent add, remove or update.`

	DesignerTemplateDescription = `Return the template JSON for the current fields without writing it anywhere.`

	DesignerExportDescription = `Write <pdf name>_fields.json to the configured output (directory, GCS or S3).`

	DesignerImportTemplateDescription = `Load the fields of an existing template into the designer so they can be edited. Replaces the current fields and clears undo.`

	DesignerImportAcroFormDescription = `Add a field for every interactive form field already in the loaded PDF, placed over its widget.

**When to use:** The PDF is already fillable and you want its boxes as a starting point instead of drawing them.

**Mapping:** text → text (multiline → textarea), checkbox → checkbox, radio group and choice → select, signature → image. Push buttons are skipped. The whole import is one undo step.`

	DesignerPreviewDescription = `Render page 1 with every field box, label and placeholder drawn on top, as a PNG image.`

	DesignerStatusDescription = `Report the designer state: document, page size, canvas scale, armed flag, live rectangle, open draft and field count.`

	// Filler
	FillerLoadTemplateDescription = `Load a *_fields.json template into a filler session. Entered values are cleared.

**Best practices:** The template must contain a fields array; anything else is rejected and the previous template stays loaded.`

	FillerLoadPDFDescription = `Load the PDF the template was designed for. Entered values are cleared.`

	FillerSetValueDescription = `Set the value of a text, number, email, date, select, textarea or list field and return the validation result.

**Rules:** required fields must not be blank, email fields must look like user@host.tld, number fields must parse as a number.`

	FillerSetValuesDescription = `Set several values in one call. values maps field ids to a string, or to an array of options for checkbox fields.

**Best practices:** The call is all or nothing: an unknown field or an option a checkbox does not offer rejects every value.`

	FillerToggleOptionDescription = `Check or uncheck one option of a checkbox field.`

	FillerSetImageDescription = `Attach an image file to an image field. PNG and JPEG are embedded; other formats are stamped as "[Image: <name>]".`

	FillerClearValueDescription = `Remove the value of a field.`

	FillerValidateDescription = `Validate every field and return all errors at once.`

	FillerGenerateDescription = `Stamp the values into a copy of the PDF and write filled_<pdf name> to the configured output.

**Best practices:** Generation refuses to run while any field is invalid and while another generation of the same session is running. Images that cannot be embedded fall back to placeholder text and are listed in the response.`

	FillerPreviewDescription = `Render page 1 with the entered values drawn in their boxes, green when valid and red when invalid, as a PNG image.`

	FillerStatusDescription = `Report the filler state: loaded document and template, validity, errors and whether a generation is running.`

	// Server
	FormsServerInfoDescription = `Get server information, configured directories and output, open sessions and the list of tools.

**When to use:** First call in a new conversation, to learn where files are read from and where exports go.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"designer_open":            DesignerOpenDescription,
	"designer_load_pdf":        DesignerLoadPDFDescription,
	"designer_begin_drawing":   DesignerBeginDrawingDescription,
	"designer_pointer":         DesignerPointerDescription,
	"designer_add_field":       DesignerAddFieldDescription,
	"designer_cancel_field":    DesignerCancelFieldDescription,
	"designer_update_field":    DesignerUpdateFieldDescription,
	"designer_remove_field":    DesignerRemoveFieldDescription,
	"designer_undo":            DesignerUndoDescription,
	"designer_template":        DesignerTemplateDescription,
	"designer_export":          DesignerExportDescription,
	"designer_import_template": DesignerImportTemplateDescription,
	"designer_import_acroform": DesignerImportAcroFormDescription,
	"designer_preview":         DesignerPreviewDescription,
	"designer_status":          DesignerStatusDescription,
	"filler_open":              FillerOpenDescription,
	"filler_load_template":     FillerLoadTemplateDescription,
	"filler_load_pdf":          FillerLoadPDFDescription,
	"filler_set_value":         FillerSetValueDescription,
	"filler_toggle_option":     FillerToggleOptionDescription,
	"filler_set_image":         FillerSetImageDescription,
	"filler_clear_value":       FillerClearValueDescription,
	"filler_validate":          FillerValidateDescription,
	"filler_generate":          FillerGenerateDescription,
	"filler_preview":           FillerPreviewDescription,
	"filler_status":            FillerStatusDescription,
	"session_close":            SessionCloseDescription,
	"forms_server_info":        FormsServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in alphabetical order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
