package modeldir

import (
	"strings"
	"testing"
)

const pricingPage = `
<html><body>
  <div class="card">
    <h3>vendor/free-chat-7b</h3>
    <div>输入 免费</div>
    <div>输出 免费</div>
  </div>
  <div class="card">
    <h3>vendor/discounted-13b</h3>
    <div>输入 免费</div>
    <div>输出 ¥0.7 / M tokens</div>
  </div>
  <div class="card">
    <h3>vendor/paid-72b</h3>
    <div>输入 $1.00</div>
    <div>输出 $2.00</div>
  </div>
  <div class="card">
    <h3>Pro/vendor/free-pro</h3>
    <div>Free</div>
    <div>Free</div>
  </div>
  <div class="card">
    <h3>Not A Model Name</h3>
    <div>免费 免费</div>
  </div>
</body></html>`

func TestParseFreeModelsHTML(t *testing.T) {
	models, err := ParseFreeModelsHTML(strings.NewReader(pricingPage))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(models) != 1 || models[0] != "vendor/free-chat-7b" {
		t.Errorf("got %v, want [vendor/free-chat-7b]", models)
	}
}

func TestParseFreeModelsHTML_NoneFound(t *testing.T) {
	_, err := ParseFreeModelsHTML(strings.NewReader("<html><body><p>nothing here</p></body></html>"))
	if err == nil {
		t.Error("expected an error when no free models are present")
	}
}
