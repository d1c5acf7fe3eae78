package view

import (
	"html/template"
	"io"
)

// QueryState echoes the active filters back into the page controls.
type QueryState struct {
	UserID string
	Kind   string
	Range  string
	Search string
}

// DashboardData feeds the dashboard page template.
type DashboardData struct {
	Cards       StatsCards
	Rows        []TransactionRow
	Users       []UserOption
	Query       QueryState
	RefreshedAt string
	LastError   string
}

// AuditData feeds the audit page template.
type AuditData struct {
	Rows      []AuditRow
	Users     []UserOption
	Query     QueryState
	LastError string
}

// GenerateData feeds the generator page template.
type GenerateData struct {
	Users []UserOption
}

// UserOption is one entry of the user picker.
type UserOption struct {
	ID   string
	Name string
}

var (
	dashboardTmpl = template.Must(template.New("dashboard").Parse(pageHead + dashboardBody))
	auditTmpl     = template.Must(template.New("audit").Parse(pageHead + auditBody))
	generateTmpl  = template.Must(template.New("generate").Parse(pageHead + generateBody))
)

// RenderDashboard writes the dashboard page.
func RenderDashboard(w io.Writer, data DashboardData) error {
	return dashboardTmpl.Execute(w, data)
}

// RenderAudit writes the audit-log page.
func RenderAudit(w io.Writer, data AuditData) error {
	return auditTmpl.Execute(w, data)
}

// RenderGenerate writes the generator page.
func RenderGenerate(w io.Writer, data GenerateData) error {
	return generateTmpl.Execute(w, data)
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>FraudLens</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --bg: #09090b; --bg-subtle: #18181b; --border: #27272a;
            --text: #fafafa; --text-secondary: #a1a1aa; --text-tertiary: #52525b;
            --ok: #22c55e; --warn: #eab308; --bad: #ef4444;
        }
        body {
            font-family: -apple-system, 'Segoe UI', sans-serif;
            background: var(--bg); color: var(--text);
            min-height: 100vh; font-size: 14px;
        }
        .mono { font-family: 'SF Mono', 'Consolas', monospace; }
        .container { max-width: 1280px; margin: 0 auto; padding: 0 24px; }
        header { border-bottom: 1px solid var(--border); padding: 16px 0; }
        .header-inner { display: flex; justify-content: space-between; align-items: center; }
        .logo { font-weight: 600; font-size: 15px; color: var(--text); text-decoration: none; }
        nav { display: flex; gap: 24px; }
        nav a { color: var(--text-secondary); text-decoration: none; font-size: 13px; }
        nav a:hover, nav a.active { color: var(--text); }
        .page-header { padding: 32px 0 16px; }
        .page-title { font-size: 22px; font-weight: 600; }
        .cards { display: grid; grid-template-columns: repeat(3, 1fr); gap: 16px; padding: 16px 0; }
        .card { background: var(--bg-subtle); border: 1px solid var(--border); border-radius: 8px; padding: 16px; }
        .card-label { color: var(--text-secondary); font-size: 12px; text-transform: uppercase; }
        .card-value { font-size: 28px; font-weight: 600; margin-top: 4px; }
        .filters { display: flex; gap: 8px; padding: 16px 0; flex-wrap: wrap; }
        .filters select, .filters input, .filters button {
            background: var(--bg-subtle); border: 1px solid var(--border); color: var(--text);
            padding: 8px 12px; border-radius: 6px; font-size: 13px; font-family: inherit;
        }
        table { width: 100%; border-collapse: collapse; }
        th { text-align: left; color: var(--text-secondary); font-size: 12px; text-transform: uppercase;
             padding: 10px 8px; border-bottom: 1px solid var(--border); }
        td { padding: 10px 8px; border-bottom: 1px solid var(--border); }
        .badge { padding: 2px 8px; border-radius: 4px; font-size: 11px; font-weight: 600; }
        .badge.normal { background: rgba(34,197,94,.15); color: var(--ok); }
        .badge.anomalous { background: rgba(239,68,68,.15); color: var(--bad); }
        .badge.approve { background: rgba(34,197,94,.15); color: var(--ok); }
        .badge.review { background: rgba(234,179,8,.15); color: var(--warn); }
        .badge.decline { background: rgba(239,68,68,.15); color: var(--bad); }
        .empty { text-align: center; padding: 48px; color: var(--text-tertiary); }
        .error-bar { background: rgba(239,68,68,.1); border: 1px solid var(--bad); color: var(--bad);
                     border-radius: 6px; padding: 10px 14px; margin: 12px 0; font-size: 13px; }
        .muted { color: var(--text-tertiary); font-size: 12px; }
        .stage { display: flex; align-items: center; gap: 10px; padding: 8px 0; }
        .stage .dot { width: 10px; height: 10px; border-radius: 50%; background: var(--text-tertiary); }
        .stage.running .dot { background: var(--warn); }
        .stage.ok .dot { background: var(--ok); }
        .stage.failed .dot { background: var(--bad); }
        pre { background: var(--bg-subtle); border: 1px solid var(--border); border-radius: 6px;
              padding: 12px; overflow-x: auto; font-size: 12px; }
    </style>
</head>
<body>
    <header><div class="container header-inner">
        <a href="/" class="logo">FraudLens</a>
        <nav>
            <a href="/">Dashboard</a>
            <a href="/audit">Audit Log</a>
            <a href="/generate">Generate</a>
        </nav>
    </div></header>
`

const dashboardBody = `    <main class="container">
        <div class="page-header"><h1 class="page-title">Transactions</h1>
        <span class="muted">refreshed {{.RefreshedAt}}</span></div>
        {{if .LastError}}<div class="error-bar">Backend error: {{.LastError}} (showing last good data)</div>{{end}}
        <div class="cards">
            <div class="card"><div class="card-label">Total</div><div class="card-value">{{.Cards.Total}}</div></div>
            <div class="card"><div class="card-label">Normal</div><div class="card-value">{{.Cards.Normal}}</div></div>
            <div class="card"><div class="card-label">Anomalous</div><div class="card-value">{{.Cards.Anomalous}}</div></div>
        </div>
        <form class="filters" method="GET" action="/">
            <select name="user">
                <option value="">All users</option>
                {{range .Users}}<option value="{{.ID}}"{{if eq .ID $.Query.UserID}} selected{{end}}>{{.Name}}</option>{{end}}
            </select>
            <select name="kind">
                <option value="">All kinds</option>
                <option value="anomalous"{{if eq .Query.Kind "anomalous"}} selected{{end}}>Anomalous</option>
                <option value="normal"{{if eq .Query.Kind "normal"}} selected{{end}}>Normal</option>
            </select>
            <select name="range">
                <option value="">All time</option>
                <option value="today"{{if eq .Query.Range "today"}} selected{{end}}>Today</option>
                <option value="week"{{if eq .Query.Range "week"}} selected{{end}}>This week</option>
                <option value="month"{{if eq .Query.Range "month"}} selected{{end}}>This month</option>
            </select>
            <input type="search" name="q" placeholder="Search by ID" value="{{.Query.Search}}">
            <button type="submit">Apply</button>
            <a href="/export/transactions.csv?user={{.Query.UserID}}&kind={{.Query.Kind}}&range={{.Query.Range}}&q={{.Query.Search}}"><button type="button">Export CSV</button></a>
        </form>
        {{if .Rows}}
        <table>
            <thead><tr><th>ID</th><th>User</th><th>Amount</th><th>Merchant</th><th>Category</th><th>Location</th><th>When</th><th>Status</th></tr></thead>
            <tbody>
            {{range .Rows}}
            <tr>
                <td class="mono">{{.ShortID}}</td>
                <td>{{if .UserName}}{{.UserName}}{{else}}{{.UserID}}{{end}}</td>
                <td class="mono">{{.Amount}}</td>
                <td>{{.Merchant}}</td>
                <td>{{.Category}}</td>
                <td>{{.Location}}</td>
                <td class="muted">{{.When}}</td>
                <td><span class="badge {{.BadgeClass}}">{{.Badge}}</span></td>
            </tr>
            {{end}}
            </tbody>
        </table>
        {{else}}<div class="empty">No transactions match the current filters</div>{{end}}
    </main>
</body>
</html>`

const auditBody = `    <main class="container">
        <div class="page-header"><h1 class="page-title">Audit Log</h1></div>
        {{if .LastError}}<div class="error-bar">Backend error: {{.LastError}} (showing last good data)</div>{{end}}
        <form class="filters" method="GET" action="/audit">
            <select name="user">
                <option value="">All users</option>
                {{range .Users}}<option value="{{.ID}}"{{if eq .ID $.Query.UserID}} selected{{end}}>{{.Name}}</option>{{end}}
            </select>
            <select name="kind">
                <option value="">All decisions</option>
                <option value="approve"{{if eq .Query.Kind "approve"}} selected{{end}}>Approve</option>
                <option value="decline"{{if eq .Query.Kind "decline"}} selected{{end}}>Decline</option>
                <option value="manual review"{{if eq .Query.Kind "manual review"}} selected{{end}}>Manual review</option>
            </select>
            <select name="range">
                <option value="">All time</option>
                <option value="today"{{if eq .Query.Range "today"}} selected{{end}}>Today</option>
                <option value="week"{{if eq .Query.Range "week"}} selected{{end}}>This week</option>
                <option value="month"{{if eq .Query.Range "month"}} selected{{end}}>This month</option>
            </select>
            <input type="search" name="q" placeholder="Search by ID" value="{{.Query.Search}}">
            <button type="submit">Apply</button>
            <a href="/export/audit.csv?user={{.Query.UserID}}&kind={{.Query.Kind}}&range={{.Query.Range}}&q={{.Query.Search}}"><button type="button">Export CSV</button></a>
        </form>
        {{if .Rows}}
        <table>
            <thead><tr><th>When</th><th>Transaction</th><th>User</th><th>Risk</th><th>Decision</th><th>Explanation</th></tr></thead>
            <tbody>
            {{range .Rows}}
            <tr>
                <td class="muted">{{.When}}</td>
                <td class="mono">{{.ShortID}}</td>
                <td>{{.UserID}}</td>
                <td class="mono">{{.RiskScore}}</td>
                <td><span class="badge {{.DecisionClass}}">{{.Decision}}</span></td>
                <td>{{.Explanation}}</td>
            </tr>
            {{end}}
            </tbody>
        </table>
        {{else}}<div class="empty">No audit entries match the current filters</div>{{end}}
    </main>
</body>
</html>`

const generateBody = `    <main class="container">
        <div class="page-header"><h1 class="page-title">Generate Transaction</h1></div>
        <form class="filters" id="genform">
            <select name="user_id" id="user">
                {{range .Users}}<option value="{{.ID}}">{{.Name}}</option>{{end}}
            </select>
            <label><input type="checkbox" id="anomaly"> Force anomaly</label>
            <button type="submit" id="run">Run</button>
        </form>
        <div id="stages">
            <div class="stage" data-stage="generate"><span class="dot"></span>Generate</div>
            <div class="stage" data-stage="score"><span class="dot"></span>Score</div>
            <div class="stage" data-stage="risk"><span class="dot"></span>Risk</div>
            <div class="stage" data-stage="explain"><span class="dot"></span>Explain</div>
        </div>
        <pre id="result" style="display:none"></pre>
    </main>
    <script>
        const stages = document.querySelectorAll('.stage');
        const reset = () => stages.forEach(s => s.className = 'stage');

        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
        ws.onopen = () => ws.send(JSON.stringify({event_types: ['workflow_stage']}));
        ws.onmessage = e => {
            const ev = JSON.parse(e.data);
            if (ev.type !== 'workflow_stage') return;
            const el = document.querySelector('.stage[data-stage="' + ev.data.stage + '"]');
            if (el) el.className = 'stage ' + ev.data.status;
        };

        document.getElementById('genform').addEventListener('submit', e => {
            e.preventDefault();
            reset();
            const out = document.getElementById('result');
            out.style.display = 'none';
            fetch('/workflow/run', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({
                    user_id: document.getElementById('user').value,
                    is_anomaly: document.getElementById('anomaly').checked
                })
            }).then(r => r.json()).then(data => {
                out.textContent = JSON.stringify(data, null, 2);
                out.style.display = 'block';
            }).catch(err => {
                out.textContent = 'request failed: ' + err;
                out.style.display = 'block';
            });
        });
    </script>
</body>
</html>`
