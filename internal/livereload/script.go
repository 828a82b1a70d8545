package livereload

// Path is where the hub is mounted.
const Path = "/livereload"

// ScriptPath serves Script.
const ScriptPath = "/livereload.js"

// Script is the browser client. The first event sets the baseline; later
// ones reload the page, or only its stylesheets when just CSS changed.
const Script = `(() => {
  if (window.__SATSUMA_LR__) return;
  window.__SATSUMA_LR__ = true;
  function swapCSS() {
    document.querySelectorAll('link[rel="stylesheet"]').forEach((l) => {
      const u = new URL(l.href);
      u.searchParams.set('lr', Date.now());
      l.href = u.toString();
    });
  }
  function connect() {
    const es = new EventSource('` + Path + `');
    let current = null;
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (current === null) { current = p.hash; return; }
        if (p.hash && p.hash !== current) {
          current = p.hash;
          if (p.css) { swapCSS(); } else { location.reload(); }
        }
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`
