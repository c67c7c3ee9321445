package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

var landingPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1.0" />
<title>Fresh Valley Farm</title>
<style>
body { font-family: Georgia, serif; margin: 0; background: linear-gradient(135deg,#2d6a4f,#95d5b2); color: #fff; min-height: 100vh; display: flex; flex-direction: column; }
header { flex: 1; padding: 60px 20px; text-align: center; }
button { margin: 10px; padding: 12px 24px; font-size: 16px; border: none; border-radius: 4px; cursor: pointer; background: rgba(255,255,255,0.2); color: #fff; transition: background 0.3s; }
button:hover { background: rgba(255,255,255,0.4); }
.modal { display: none; position: fixed; top: 0; left: 0; width: 100%; height: 100%; background: rgba(0,0,0,0.5); justify-content: center; align-items: center; }
.modal-content { background: #fff; color: #333; padding: 24px; border-radius: 8px; width: 90%; max-width: 420px; box-shadow: 0 10px 40px rgba(0,0,0,0.2); }
.close { float: right; cursor: pointer; font-size: 20px; }
input { width: 100%; padding: 10px; margin: 8px 0; border: 1px solid #ccc; border-radius: 4px; }
footer { text-align: center; padding: 20px; font-size: 14px; opacity: 0.8; }
</style>
</head>
<body>
<header>
  <h1>Fresh Valley Farm</h1>
  <p>Farm-fresh dairy and pasture-raised meats, delivered to your door.</p>
  <button onclick="openModal('login')">Login</button>
  <button onclick="openModal('register')">Register</button>
</header>
<div id="modal" class="modal">
  <div class="modal-content">
    <span class="close" onclick="closeModal()">&times;</span>
    <div id="forms"></div>
  </div>
</div>
<footer>Fresh Valley Farm API</footer>
<script>
const forms = {
  login: '<h2>Login</h2>\n<form onsubmit="return submitAuth(event, \'/api/v1/auth/login\')">\n  <input type="text" name="username" placeholder="Username" required />\n  <input type="password" name="password" placeholder="Password" required />\n  <button type="submit">Login</button>\n</form>',
  register: '<h2>Register</h2>\n<form onsubmit="return submitAuth(event, \'/api/v1/auth/register\')">\n  <input type="text" name="username" placeholder="Username" required />\n  <input type="email" name="email" placeholder="Email" required />\n  <input type="tel" name="phone" placeholder="Phone" required />\n  <input type="text" name="address" placeholder="Delivery address" required />\n  <input type="password" name="password" placeholder="Password" required />\n  <input type="password" name="confirm_password" placeholder="Confirm password" required />\n  <button type="submit">Register</button>\n</form>'
};

function openModal(type) {
  document.getElementById('forms').innerHTML = forms[type];
  document.getElementById('modal').style.display = 'flex';
}
function closeModal() {
  document.getElementById('modal').style.display = 'none';
}
window.onclick = function(event) {
  if (event.target === document.getElementById('modal')) {
    closeModal();
  }
};
async function submitAuth(event, endpoint) {
  event.preventDefault();
  const form = new FormData(event.target);
  const response = await fetch(endpoint, {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(Object.fromEntries(form.entries()))
  });
  const data = await response.json();
  if (response.ok) {
    if (data.token) {
      localStorage.setItem('freshvalley_token', data.token);
    }
    window.location.href = '/shop';
  } else {
    alert(data.error || 'Request failed');
  }
  return false;
}
</script>
</body>
</html>`

func RegisterPages(e *echo.Echo, shopURL string) {
	e.GET("/", func(c echo.Context) error {
		return c.HTML(http.StatusOK, landingPageHTML)
	})

	e.GET("/shop", func(c echo.Context) error {
		if shopURL != "" {
			return c.Redirect(http.StatusTemporaryRedirect, shopURL)
		}
		return c.HTML(http.StatusOK, "<h1>Fresh Valley Farm</h1><p>Browse the catalog at /api/v1/products.</p>")
	})
}
