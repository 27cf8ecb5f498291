package shared

// Page clamps raw pagination inputs to sane bounds. Unlike the audit
// query validation, list pagination clamps silently: a too-large page size
// here is a nuisance, not a misleading dashboard.
func Page(page, size, defaultSize, maxSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size
}
