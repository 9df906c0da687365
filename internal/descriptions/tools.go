package descriptions

import "sort"

// Tool names exposed over MCP
const (
	ToolCropPages   = "notam_crop_pages"
	ToolExtractText = "notam_extract_text"
	ToolBrief       = "notam_brief"
	ToolAnnotate    = "notam_annotate"
	ToolStampTags   = "notam_stamp_tags"
	ToolServerInfo  = "notam_server_info"
)

// Tool descriptions with practical examples for flight crew workflows

const (
	CropPagesDescription = `Keep only the relevant pages of a NOTAM briefing pack and write them to a new PDF.

**When to use:** The pack contains weather, flight plan or route pages that are not NOTAMs, or notices for aerodromes you will not use.

**Why it's useful:** A shorter pack is faster to brief and leaves less text for the classifier to wade through.

**Examples:**
• Drop the cover and weather: "Keep pages 3-9 of egll-lfpg.pdf"
• Pick scattered pages: "Crop pack.pdf to pages 1-3,5,8"

**Page ranges:** Comma-separated page numbers or a-b ranges, whitespace ignored. Pages beyond the end of the document are skipped; anything that is not a number fails. An empty range keeps every page.

**Output:** Clean_<name>.pdf next to the source unless output_path is given.`

	ExtractTextDescription = `Read the text layer of the first pages of a NOTAM pack, as the model sees it.

**When to use:** Checking what the briefing or classifier will work from, or finding which pages carry operational keywords.

**Why it's useful:** Shows pages with CLOSED, CLSD, U/S, PROHIBITED and similar keywords so you can choose a page range before cropping.

**Examples:**
• "Which pages of pack.pdf mention closures?"
• "Show the text of pages 2-4 of pack.pdf"

**Best practices:** A scanned pack has no text layer and fails here; it cannot be briefed or annotated either.`

	BriefDescription = `Produce a dense operational briefing of a NOTAM pack with the language model.

**When to use:** Before departure, to get the critical items (runway and taxiway closures, navaid outages, airspace restrictions, obstacles) without reading every notice.

**Why it's useful:** Summarises the first pages of the pack into a pilot-oriented list of what matters today.

**Examples:**
• "Brief me on pack.pdf"
• "Brief pages 3-7 of pack.pdf only"

**Best practices:** Crop irrelevant pages first; only the leading pages are read and long text is truncated.`

	AnnotateDescription = `Classify every NOTAM in a pack and stamp a "[ TYPE | AGE ]" tag beside each notice header.

**When to use:** Preparing a printed or EFB pack where you want to see at a glance which notices concern runways, navaids, taxiways, airspace or obstacles, and how old they are.

**Why it's useful:** Types are RWY NAV TWY AIR OBS IRR; age is days since the notice took effect, three digits, capped at 999.

**Examples:**
• "Annotate pack.pdf"
• "Annotate pack.pdf, classifying only the notices on pages 2-6"

**Output:** Annotated_<name>.pdf with every page of the source and the same page sizes; a page range only limits which notices are classified. Identifiers the model names but that have no header in the document are reported as unmatched.`

	StampTagsDescription = `Stamp caller-supplied tags beside notice headers, without consulting the model.

**When to use:** You already have a classification (from an earlier run or your own review) and want it printed into the pack.

**Why it's useful:** Deterministic and offline. Only an occurrence of the identifier close to the left margin counts as a header; references inside other notices are ignored.

**Examples:**
• tags: {"A1234/26": "[ RWY | 012 ]", "B0012/26": "[ NAV | 003 ]"}

**Best practices:** Stamp the original pack, not an already annotated one; a second run stamps again on top.`

	ServerInfoDescription = `Get server status, available tools, configuration and the briefing packs in the working directory.

**When to use:** Starting a session, or finding out why a file cannot be found.

**Why it's useful:** Shows the default directory and the PDFs in it, whether a language model is configured and the stamp layout in use.

**Best practices:** Run at the start of a session.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolCropPages:   CropPagesDescription,
	ToolExtractText: ExtractTextDescription,
	ToolBrief:       BriefDescription,
	ToolAnnotate:    AnnotateDescription,
	ToolStampTags:   StampTagsDescription,
	ToolServerInfo:  ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns every tool name, sorted
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
