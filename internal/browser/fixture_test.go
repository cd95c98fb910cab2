package browser

import (
	"fmt"
	"strings"
)

// soldPage renders an eBay-like sold listings page with an ad slot
// followed by n listings.
func soldPage(n int) string {
	var b strings.Builder
	b.WriteString(`<html><head><link rel="stylesheet" href="/style.css"></head><body><ul class="srp-results">`)
	b.WriteString(`<li><div class="s-item__info clearfix"><div class="s-item__title"><span role="heading">Shop on eBay</span></div></div></li>`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<li class="s-item">
<img src="/img/%[1]d.jpg">
<div class="s-item__info clearfix">
  <a class="s-item__link" href="/itm/%[1]d">
    <div class="s-item__title"><span role="heading">Pikachu 58/102 Base Set Holo #%[1]d</span></div>
  </a>
  <div class="s-item__caption--row"><span><span class="POSITIVE">Sold  Oct %[1]d, 2024</span></span></div>
  <div class="s-item__details">
    <div class="s-item__price"><span class="POSITIVE">$%[1]d.25</span></div>
  </div>
</div>
</li>`, i)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}
