package signature

// Built-in textual rules. Each is wrapped as ^(?:expr)$ with (?i), so an
// expression must account for the whole line.
var defaultPatterns = []struct {
	name string
	expr string
}{
	// script injection / eval
	{"js-eval", `.*eval\(.*\).*`},
	{"document-write", `.*document\.write\(.*\).*`},
	{"script-tag", `.*<script.*>.*`},
	{"base64-decode", `.*\bbase64_decode\b.*`},

	// shell and process execution
	{"shell-exec", `.*shell_exec\(.*\).*`},
	{"exec-call", `.*exec\(.*\).*`},
	{"system-call", `.*system\(.*\).*`},
	{"passthru", `.*passthru\(.*\).*`},
	{"process-spawn", `.*process\.spawn.*`},
	{"runtime-exec", `.*runtime\.exec.*`},
	{"create-process", `.*createprocess.*`},

	// encoded / evasive powershell
	{"powershell-encoded", `.*powershell.*-enc.*`},
	{"powershell-download", `.*powershell.*downloadstring.*`},
	{"powershell-bypass", `.*powershell.*bypass.*`},
	{"powershell-hidden", `.*powershell.*hidden.*`},

	// raw sockets and IP-literal connections
	{"socket-create", `.*new\s+socket\s*\(.*`},
	{"ip-connect", `.*connect\s*\(.*\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}.*\).*`},

	// download utilities
	{"wget-download", `.*wget\s+http.*`},
	{"curl-download", `.*curl\s+.*-O.*`},

	// registry writes
	{"reg-add", `.*reg.*add.*`},
	{"registry-setvalue", `.*registry\.setvalue.*`},

	// file encryption and permission widening
	{"encrypt-call", `.*\.encrypt\(.*`},
	{"chmod-777", `.*chmod.*777.*`},
	{"icacls-everyone", `.*icacls.*grant.*everyone.*`},

	// data exfiltration
	{"upload-call", `.*\.upload\(.*`},
	{"post-password", `.*post.*password.*`},
	{"keylog", `.*keylog.*`},

	// persistence directories
	{"startup-folder", `.*\\startup\\.*`},
	{"drivers-folder", `.*\\system32\\drivers\\.*`},
	{"scheduled-tasks", `.*\\tasks\\.*`},

	// string deobfuscation
	{"unescape", `.*\bunescape\b.*`},
	{"decode", `.*\bdecode\b.*`},
	{"fromcharcode", `.*\bfromcharcode\b.*`},
}

func defaultBinarySignatures() []BinarySignature {
	return []BinarySignature{
		{Name: "elf-header", Bytes: []byte{0x7F, 0x45, 0x4C, 0x46, 0x02, 0x01, 0x01}},
		{Name: "mimikatz", Bytes: []byte("sekurlsa::logonpasswords")},
		{Name: "reflective-loader", Bytes: []byte("ReflectiveLoader")},
		{Name: "meterpreter", Bytes: []byte("core_channel_open")},
		{Name: "c99-webshell", Bytes: []byte("c99shell")},
		{Name: "r57-webshell", Bytes: []byte("r57shell")},
	}
}
