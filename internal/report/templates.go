package report

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Name}} - Test Report</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f8fafc;
            --text-primary: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
            --accent-success: #22c55e;
            --accent-warning: #f59e0b;
            --accent-error: #ef4444;
            --shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background-color: var(--bg-secondary);
            color: var(--text-primary);
            line-height: 1.6;
        }
        .container { max-width: 1200px; margin: 0 auto; padding: 2rem; }
        header { margin-bottom: 2rem; }
        header .meta { color: var(--text-secondary); font-size: 0.9rem; }
        .summary { display: grid; grid-template-columns: repeat(auto-fit, minmax(140px, 1fr)); gap: 1rem; margin-bottom: 2rem; }
        .card { background: var(--bg-primary); border: 1px solid var(--border-color); border-radius: 8px; padding: 1rem; box-shadow: var(--shadow); }
        .card .value { font-size: 1.8rem; font-weight: 600; }
        .card .label { color: var(--text-secondary); font-size: 0.85rem; text-transform: uppercase; }
        table { width: 100%; border-collapse: collapse; background: var(--bg-primary); box-shadow: var(--shadow); }
        th, td { text-align: left; padding: 0.6rem 0.8rem; border-bottom: 1px solid var(--border-color); vertical-align: top; }
        th { color: var(--text-secondary); font-size: 0.8rem; text-transform: uppercase; }
        .status { font-weight: 600; }
        .status-passed { color: var(--accent-success); }
        .status-failed { color: var(--accent-error); }
        .status-broken, .status-skipped { color: var(--accent-warning); }
        .message { color: var(--accent-error); font-size: 0.9rem; }
        dl.params { display: grid; grid-template-columns: max-content auto; gap: 0 1rem; font-size: 0.85rem; }
        dl.params dt { color: var(--text-secondary); }
    </style>
</head>
<body>
<div class="container">
    <header>
        <h1>{{.Name}}</h1>
        <div class="meta">
            {{if .Environment}}Environment: <strong>{{.Environment}}</strong> &middot; {{end}}Generated {{formatTime .GeneratedAt}}
        </div>
    </header>

    <section class="summary">
        <div class="card"><div class="value">{{.Summary.Total}}</div><div class="label">Total</div></div>
        <div class="card"><div class="value status-passed">{{.Summary.Passed}}</div><div class="label">Passed</div></div>
        <div class="card"><div class="value status-failed">{{.Summary.Failed}}</div><div class="label">Failed</div></div>
        <div class="card"><div class="value status-broken">{{.Summary.Broken}}</div><div class="label">Broken</div></div>
        <div class="card"><div class="value status-skipped">{{.Summary.Skipped}}</div><div class="label">Skipped</div></div>
    </section>

    <table>
        <thead>
            <tr><th>Case</th><th>Status</th><th>Duration</th><th>Details</th></tr>
        </thead>
        <tbody>
        {{range .Cases}}
            <tr>
                <td>{{.Name}}</td>
                <td class="status status-{{.Status}}">{{.Status}}</td>
                <td>{{formatDuration .Duration}}</td>
                <td>
                    {{if .Message}}<div class="message">{{.Message}}</div>{{end}}
                    {{if .Parameters}}
                    <dl class="params">
                        {{range $k, $v := .Parameters}}<dt>{{$k}}</dt><dd>{{$v}}</dd>{{end}}
                    </dl>
                    {{end}}
                </td>
            </tr>
        {{else}}
            <tr><td colspan="4">No cases were recorded.</td></tr>
        {{end}}
        </tbody>
    </table>
</div>
</body>
</html>
`
