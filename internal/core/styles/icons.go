package styles

var (
	IconChecked   = "[x]"
	IconUnchecked = "[ ]"
	IconCursor    = "›"
	IconOffline   = "⚠"
)
