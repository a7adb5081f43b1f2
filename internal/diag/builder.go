package diag

// New builds a diagnostic without notes; use WithNote to attach them.
func New(sev Severity, code Code, loc Location, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Location: loc,
		Message:  msg,
	}
}

func (d Diagnostic) WithNote(loc Location, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Location: loc, Msg: msg})
	return d
}

func (d Diagnostic) WithPlatform(triple string) Diagnostic {
	d.Platform = triple
	return d
}
