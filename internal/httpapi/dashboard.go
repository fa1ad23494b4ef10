package httpapi

// dashboardHTML is a static page that polls the JSON endpoints every
// two seconds and renders processor cards, a recent-trace list, a
// recent-error list, and file-queue counts. It has no build step and
// no external assets beyond the engine's own endpoints.
const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>streamgraph</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; background: #111; color: #eee; }
  h1 { font-weight: 600; }
  .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(220px, 1fr)); gap: 1rem; margin-bottom: 2rem; }
  .card { background: #1c1c1c; border: 1px solid #333; border-radius: 8px; padding: 1rem; }
  .card h3 { margin: 0 0 0.5rem 0; font-size: 0.9rem; color: #9cf; }
  .card div { font-size: 0.85rem; color: #ccc; }
  table { width: 100%; border-collapse: collapse; font-size: 0.85rem; }
  th, td { text-align: left; padding: 0.3rem 0.5rem; border-bottom: 1px solid #333; }
  .status-emit { color: #7f7; }
  .status-drop { color: #ff7; }
  .status-error { color: #f77; }
  .status-start { color: #79f; }
</style>
</head>
<body>
  <h1>streamgraph</h1>

  <h2>Files</h2>
  <div class="grid" id="files"></div>

  <h2>Processors</h2>
  <div class="grid" id="processors"></div>

  <h2>Recent traces</h2>
  <table id="traces"><thead><tr><th>line</th><th>path</th></tr></thead><tbody></tbody></table>

  <h2>Recent errors</h2>
  <table id="errors"><thead><tr><th>time</th><th>processor</th><th>message</th></tr></thead><tbody></tbody></table>

<script>
async function refresh() {
  const [stats, trace, errs, files] = await Promise.all([
    fetch('/stats').then(r => r.json()),
    fetch('/trace?limit=25').then(r => r.json()),
    fetch('/errors?limit=25').then(r => r.json()),
    fetch('/files').then(r => r.json()),
  ]);

  const filesEl = document.getElementById('files');
  filesEl.innerHTML = '';
  for (const [label, value] of [
    ['unprocessed', files.unprocessed_count],
    ['in-flight', files.in_flight_count],
    ['processed', files.processed_count],
    ['current', files.current_file || '—'],
  ]) {
    filesEl.innerHTML += '<div class="card"><h3>' + label + '</h3><div>' + value + '</div></div>';
  }

  const procEl = document.getElementById('processors');
  procEl.innerHTML = '';
  for (const [id, m] of Object.entries(stats.processors || {})) {
    procEl.innerHTML += '<div class="card"><h3>' + id + ' (' + m.type + ')</h3>' +
      '<div>in: ' + m.lines_in + ' / out: ' + m.lines_out + '</div>' +
      '<div>errors: ' + m.error_count + '</div>' +
      '<div>time: ' + m.total_processing_time.toFixed(4) + 's</div></div>';
  }

  const traceBody = document.querySelector('#traces tbody');
  traceBody.innerHTML = '';
  for (const t of trace) {
    const path = (t.path || []).map(p => '<span class="status-' + p.status + '">' + p.processor_id + ':' + p.status + '</span>').join(' → ');
    traceBody.innerHTML += '<tr><td>' + (t.original_line || '') + '</td><td>' + path + '</td></tr>';
  }

  const errBody = document.querySelector('#errors tbody');
  errBody.innerHTML = '';
  for (const e of errs) {
    errBody.innerHTML += '<tr><td>' + e.timestamp + '</td><td>' + e.processor_id + '</td><td>' + e.message + '</td></tr>';
  }
}

refresh();
setInterval(refresh, 2000);
</script>
</body>
</html>
`
