package livereload

import (
	"fmt"
	"strconv"
)

const (
	ClientPath = "/livereload.js"
	SocketPath = "/livereload"
	// ScriptID marks the injected <script> so the loader never adds it twice.
	ScriptID = "svpack-livereload"
)

func clientScript() string {
	return `(function () {
	var protocol = window.location.protocol === 'https:' ? 'wss' : 'ws';
	var script = document.getElementById('` + ScriptID + `');
	var origin = script && script.src ? new URL(script.src) : window.location;
	var connectionUrl = protocol + '://' + origin.hostname + ':' + origin.port + '` + SocketPath + `';
	var heartbeatTimer = -1;
	var connection;

	function refreshStyles() {
		var links = document.querySelectorAll('link[rel="stylesheet"]');
		for (var i = 0; i < links.length; i++) {
			var href = links[i].href.replace(/[?&]livereload=\d+/, '');
			links[i].href = href + (href.indexOf('?') >= 0 ? '&' : '?') + 'livereload=' + Date.now();
		}
	}

	function connect() {
		connection = new WebSocket(connectionUrl);
		connection.onopen = function () {
			heartbeatTimer = setInterval(function () {
				connection.send('ping');
			}, 3000);
		};
		connection.onclose = function () {
			clearInterval(heartbeatTimer);
			if (typeof console !== 'undefined' && typeof console.info === 'function') {
				console.info('The live reload server has disconnected. Retrying...');
			}
			setTimeout(connect, 1000);
		};
		connection.onmessage = function (e) {
			var message = JSON.parse(e.data);
			switch (message.type) {
				case 'reload':
					window.location.reload();
					break;
				case 'css':
					refreshStyles();
					break;
				case 'errors':
					console.error(message.data);
					break;
				default:
			}
		};
	}

	connect();
})();
`
}

// ClientURL is where pages load the client from.
func ClientURL(host string, port int) string {
	return fmt.Sprintf("http://%s:%d%s", host, port, ClientPath)
}

// LoaderSnippet is prepended to the bundle; it adds the client script to the
// page once, pointing at the page's own hostname.
func LoaderSnippet(port int) string {
	return `(function(l, r) { if (!l || l.getElementById('` + ScriptID + `')) return; r = l.createElement('script'); r.async = 1; r.id = '` + ScriptID + `'; r.src = '//' + (self.location.host || 'localhost').split(':')[0] + ':` + strconv.Itoa(port) + ClientPath + `'; l.getElementsByTagName('head')[0].appendChild(r); })(self.document);`
}
