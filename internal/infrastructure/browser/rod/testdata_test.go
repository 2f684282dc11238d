package rod

const (
	basicHTML = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
	<h1>Hello World</h1>
</body>
</html>`

	formHTML = `<!DOCTYPE html>
<html>
<head><title>Login</title></head>
<body>
	<form id="testForm" onsubmit="event.preventDefault(); document.getElementById('out').textContent = 'sent ' + document.getElementById('username').value;">
		<input id="username" type="text" name="username" />
		<input id="password" type="password" name="password" class="field secret" />
		<button id="submit" type="submit">Submit</button>
	</form>
	<a href="#help" id="help">Need help?</a>
	<div id="out"></div>
</body>
</html>`

	interactiveHTML = `<!DOCTYPE html>
<html>
<body>
	<button id="btn">Click Me</button>
	<div id="result"></div>
	<div id="hidden" style="display:none">secret</div>
	<script>
		document.getElementById('btn').addEventListener('click', function() {
			document.getElementById('result').textContent = 'Clicked!';
		});
	</script>
</body>
</html>`

	scrollableHTML = `<!DOCTYPE html>
<html>
<body style="height: 5000px;">
	<h1 id="top">Top of Page</h1>
	<div style="margin-top: 2000px;" id="middle">Middle</div>
	<div style="margin-top: 2000px;" id="bottom">Bottom</div>
</body>
</html>`
)
