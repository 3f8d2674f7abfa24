package schema

// Textual contracts with the archiver's console output. Matching is
// order-dependent scraping of whatever wording the tool prints; keeping
// every marker here makes the surface auditable when the tool changes.
const (
	// MarkerListing prefixes the archive name line of a list run.
	MarkerListing = "Listing archive:"
	// MarkerExtracting prefixes the archive name line of an extract run.
	MarkerExtracting = "Extracting archive:"
	// MarkerSize occurs in the archive size summary ("1 file, 1234 bytes").
	MarkerSize = "file,"
	// MarkerPassword prefixes the interactive password prompt, which is
	// terminated by a colon instead of a newline.
	MarkerPassword = "Enter password"
	// MarkerType prefixes the container type property line.
	MarkerType = "Type = "
	// MarkerMethod prefixes the compression method property line.
	MarkerMethod = "Method = "
	// MarkerDone prefixes the "Everything is Ok" completion line.
	MarkerDone = "Everything"
	// MarkerError prefixes error lines on either stream.
	MarkerError = "ERROR:"
	// MarkerFileRow prefixes dated file-listing rows for the current decade.
	MarkerFileRow = "202"
)

// Synthetic input lines the orchestrator feeds into the document. They are
// internal bookkeeping records, never archiver output.
const (
	// InputExtractFile records the archive under inspection.
	InputExtractFile = "Extract file: "
	// InputExtractTo records the extraction target path.
	InputExtractTo = "Extract to: "
	// InputPassword records a password entered by the user.
	InputPassword = "Input password: "
	// InputHistoryFile records where password history is kept.
	InputHistoryFile = "Password history file: "
	// InputSavePassword records a password accepted by the archiver.
	InputSavePassword = "Save password: "
)
