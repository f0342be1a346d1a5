package classifier

import (
	"regexp"

	"github.com/noah-isme/forge/internal/models"
)

// Rule is a single named text predicate belonging to one category bank.
type Rule struct {
	Category models.TaskType
	Name     string
	Pattern  *regexp.Regexp
}

// Matches reports whether the rule fires for text.
func (r Rule) Matches(text string) bool {
	return r.Pattern.MatchString(text)
}

func rule(category models.TaskType, name, pattern string) Rule {
	return Rule{Category: category, Name: name, Pattern: regexp.MustCompile(pattern)}
}

// DefaultRules is the built-in rule table, grouped per category in evaluation order.
var DefaultRules = []Rule{
	rule(models.TaskTypeCoding, "code_request", `(?i)\b(write|implement|create|build|add|generate)\s+(an?\s+)?(\w+\s+){0,3}(function|class|component|endpoint|route|script|module|handler|middleware|hook|util|api|service|page|form|modal|button|table)`),
	rule(models.TaskTypeCoding, "code_transform", `(?i)\b(refactor|rewrite|optimize|convert|migrate|port)\s`),
	rule(models.TaskTypeCoding, "bug_fix", `(?i)\b(fix|patch|hotfix)\s+(the\s+)?(\w+\s+)?(bug|error|issue|crash|typo)`),
	rule(models.TaskTypeCoding, "language_construct", `(?i)\b(async|await|promise|callback|closure|decorator|generic|interface|enum|struct)\b`),
	rule(models.TaskTypeCoding, "module_syntax", `(?i)\b(import|export|require|module\.exports|from\s+['"])`),
	rule(models.TaskTypeCoding, "react_hooks", `\b(useState|useEffect|useCallback|useMemo|useRef|useContext)\b`),
	rule(models.TaskTypeCoding, "sql_keyword", `\b(SELECT|INSERT|UPDATE|DELETE|JOIN|WHERE|GROUP BY)\b`),
	rule(models.TaskTypeCoding, "package_manager", `(?i)\b(npm|yarn|bun|pip|cargo|maven|gradle)\s+(install|add|remove|run)`),
	rule(models.TaskTypeCoding, "file_extension", `\.(js|ts|tsx|jsx|py|rs|go|java|rb|css|scss|html|sql|sh|yaml|json)\b`),
	rule(models.TaskTypeCoding, "language_name", `(?i)\b(javascript|typescript|python|rust|golang|java|ruby|swift|kotlin)\b`),
	rule(models.TaskTypeCoding, "web_framework", `(?i)\b(react|next\.?js|express|fastify|django|flask|fastapi|spring|rails)\b`),
	rule(models.TaskTypeCoding, "orm", `(?i)\b(prisma|sequelize|typeorm|mongoose|knex|drizzle)\b`),
	rule(models.TaskTypeCoding, "fenced_code", "```[\\s\\S]*```"),

	rule(models.TaskTypeReasoning, "planning", `(?i)\b(plan|design|architect|strategy|approach|roadmap)\s+(for|to|the|how)`),
	rule(models.TaskTypeReasoning, "decision", `(?i)\b(should\s+(i|we)|which\s+(is|would)\s+better|pros\s+and\s+cons|trade.?offs?)\b`),
	rule(models.TaskTypeReasoning, "comparison", `(?i)\b(compare|evaluate|assess|weigh|consider)\s+(the|these|different|various)`),
	rule(models.TaskTypeReasoning, "debugging", `(?i)\b(debug|diagnose|investigate|trace|root\s+cause|why\s+(is|does|did|would))\b`),
	rule(models.TaskTypeReasoning, "failure_signal", `(?i)\b(error|exception|stack\s*trace|segfault|panic|crash|500|404|403|timeout)\b`),
	rule(models.TaskTypeReasoning, "broken_behaviour", `(?i)\b(failing|broken|not\s+working|doesn'?t\s+work|wrong\s+output|returning\s+\d{3})\b`),
	rule(models.TaskTypeReasoning, "review", `(?i)\b(review|audit|security\s+review|code\s+review|look\s+over)\b`),
	rule(models.TaskTypeReasoning, "explanation", `(?i)\b(explain\s+(why|how|this|the)|what\s+(does|is)\s+(this|the)\s+(code|function|class))\b`),
	rule(models.TaskTypeReasoning, "architecture", `(?i)\b(microservice|monolith|event.?driven|pub.?sub|cqrs|saga|ddd)\b`),
	rule(models.TaskTypeReasoning, "performance", `(?i)\b(scaling|bottleneck|latency|throughput|performance\s+issue)\b`),
	rule(models.TaskTypeReasoning, "stepwise", `(?i)\b(step\s+by\s+step|break\s+(it\s+)?down|think\s+through|walk\s+me\s+through)\b`),

	rule(models.TaskTypeTools, "read_file", `(?i)\b(read|open|cat|view|show\s+me)\s+(the\s+)?(file|contents|source)`),
	rule(models.TaskTypeTools, "search", `(?i)\b(search|find|grep|look\s+for|locate)\s+(in|for|the|across)`),
	rule(models.TaskTypeTools, "list_files", `(?i)\b(list|ls|show)\s+(the\s+)?(files?|directories|folders|structure)`),
	rule(models.TaskTypeTools, "shell", `(?i)\b(run|execute|bash|shell|terminal|command|script)\b`),
	rule(models.TaskTypeTools, "git_command", `(?i)\b(git\s+(status|log|diff|commit|push|pull|branch|merge|rebase|cherry|stash|reset|checkout|clone|init|add|tag))\b`),
	rule(models.TaskTypeTools, "bare_git", `(?i)^git\s`),
	rule(models.TaskTypeTools, "infra_cli", `(?i)\b(docker|kubectl|terraform|ansible|helm)\s`),
	rule(models.TaskTypeTools, "network_cli", `(?i)\b(curl|wget|ssh|scp|rsync)\s`),
	rule(models.TaskTypeTools, "tool_marker", `\[Tool:\s`),
	rule(models.TaskTypeTools, "tool_call_format", `function_call|tool_use|tool_calls`),
	rule(models.TaskTypeTools, "navigation", `(?i)\b(navigate|go\s+to|open\s+file|jump\s+to|find\s+the\s+definition)\b`),
	rule(models.TaskTypeTools, "repository", `(?i)\b(codebase|repository|repo|project\s+structure|directory\s+tree)\b`),
	rule(models.TaskTypeTools, "delivery", `(?i)\b(deploy|deployment|ci.?cd|pipeline|github\s+actions|workflow)\b`),
	rule(models.TaskTypeTools, "environment", `(?i)\b(environment|staging|production|dev\s+server)\b`),

	rule(models.TaskTypeChat, "greeting", `(?i)^(hi|hey|hello|yo|sup|thanks|thank\s+you|good\s+(morning|afternoon|evening))[\s!.,?]*$`),
	rule(models.TaskTypeChat, "small_talk", `(?i)\b(how\s+are\s+you|what'?s?\s+up|how'?s?\s+it\s+going)\b`),
	rule(models.TaskTypeChat, "status", `(?i)\b(status|update|standup|summary|summarize|recap|overview)\b`),
	rule(models.TaskTypeChat, "reminder", `(?i)\b(remind|reminder|schedule|timer|alarm|note|memo)\b`),
	rule(models.TaskTypeChat, "everyday_question", `(?i)\b(what\s+time|what\s+day|weather|calendar)\b`),
	rule(models.TaskTypeChat, "who_when", `(?i)\b(who\s+(is|are)|when\s+(is|did|does|will))\b`),
	rule(models.TaskTypeChat, "project_management", `(?i)\b(jira|ticket|sprint|board|kanban|backlog|standup)\b`),
	rule(models.TaskTypeChat, "messaging", `(?i)\b(slack|message|channel|thread|dm|ping)\b`),
}
