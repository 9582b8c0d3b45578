package menu

import "lunchbot/lib/telemetry"

var tracer = telemetry.Tracer("lunchbot.lib.menu")

const (
	report_resolve_forward_probe  = "resolve.forward-probe"
	report_extract_unknown_layout = "extract.unknown-layout"
	report_extract_unpaired_row   = "extract.unpaired-row"
	report_extract_skipped_row    = "extract.skipped-row"
	report_extract_soup_table     = "extract.soup-table"
	report_classify_rejected      = "classify.rejected"
)
