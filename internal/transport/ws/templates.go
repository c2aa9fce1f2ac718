package ws

import (
	"bytes"
	"html/template"

	"github.com/kiryu-dev/tictactoe-web/internal/domain"
	"github.com/pkg/errors"
)

type templates struct {
	index *template.Template
}

type indexData struct {
	ClientID string
	Modes    []modeOption
	Cells    []int
}

type modeOption struct {
	Value   domain.GameMode
	Label   string
	Checked bool
}

var modeOptions = []modeOption{
	{Value: domain.HumanVsHuman, Label: "Human vs Human", Checked: true},
	{Value: domain.HumanVsComputer, Label: "Human vs Computer"},
}

func loadTemplates() *templates {
	return &templates{
		index: template.Must(template.New("index").Parse(indexTemplate)),
	}
}

func (t *templates) renderIndex(data indexData) ([]byte, error) {
	if data.Modes == nil {
		data.Modes = modeOptions
	}
	if data.Cells == nil {
		data.Cells = make([]int, domain.BoardSize)
		for i := range data.Cells {
			data.Cells[i] = i
		}
	}
	var buf bytes.Buffer
	if err := t.index.Execute(&buf, data); err != nil {
		return nil, errors.WithMessage(err, "execute index template")
	}
	return buf.Bytes(), nil
}

// The page only renders what the server sends; every rule lives server side.
const indexTemplate = `<!doctype html>
<html>
<head>
<meta charset="utf-8"/>
<title>Tic-Tac-Toe</title>
<style>
  body { font-family: sans-serif; display: flex; flex-direction: column; align-items: center; }
  .hidden { display: none; }
  #board { display: grid; grid-template-columns: repeat(3, 80px); gap: 6px; margin: 16px 0; }
  .cell { width: 80px; height: 80px; font-size: 40px; cursor: pointer; }
  .cell.win { background: #ffe58a; }
  #status { min-height: 1.5em; font-weight: bold; }
</style>
</head>
<body>
<h1>Tic-Tac-Toe</h1>
<section id="mode-screen" data-client="{{.ClientID}}">
  <form id="mode-form">
    {{range .Modes}}
    <label><input type="radio" name="mode" value="{{.Value}}"{{if .Checked}} checked{{end}}> {{.Label}}</label><br>
    {{end}}
    <button type="submit">Start</button>
  </form>
</section>
<section id="game-screen" class="hidden">
  <div id="status"></div>
  <div id="board">
    {{range $i := .Cells}}<button class="cell" data-pos="{{$i}}"></button>{{end}}
  </div>
  <button id="restart">Restart</button>
  <button id="leave">Change mode</button>
</section>
<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var socket = new WebSocket(proto + location.host + "/game");
  var modeScreen = document.getElementById("mode-screen");
  var gameScreen = document.getElementById("game-screen");
  var statusLine = document.getElementById("status");
  var cells = document.querySelectorAll(".cell");

  function send(type, payload) {
    socket.send(JSON.stringify({type: type, payload: payload || {}}));
  }

  function show(inGame) {
    modeScreen.classList.toggle("hidden", inGame);
    gameScreen.classList.toggle("hidden", !inGame);
  }

  function render(state) {
    show(true);
    var line = state.winning_line || [];
    cells.forEach(function (cell, i) {
      cell.textContent = state.board[i];
      cell.classList.toggle("win", line.indexOf(i) >= 0);
    });
    if (state.status === "won") {
      statusLine.textContent = "Player " + state.winner + " wins!";
    } else if (state.status === "draw") {
      statusLine.textContent = "It's a draw.";
    } else if (state.computer_thinking) {
      statusLine.textContent = "Computer is thinking...";
    } else {
      statusLine.textContent = "Player " + state.current_player + "'s turn";
    }
  }

  socket.onmessage = function (event) {
    var msg = JSON.parse(event.data);
    if (msg.type === "state") {
      render(msg.payload);
    }
  };

  document.getElementById("mode-form").addEventListener("submit", function (event) {
    event.preventDefault();
    var mode = document.querySelector("input[name=mode]:checked").value;
    send("select_mode", {mode: mode});
  });
  cells.forEach(function (cell) {
    cell.addEventListener("click", function () {
      send("move", {position: Number(cell.dataset.pos)});
    });
  });
  document.getElementById("restart").addEventListener("click", function () {
    send("restart");
  });
  document.getElementById("leave").addEventListener("click", function () {
    send("leave");
    show(false);
  });
})();
</script>
</body>
</html>
`
