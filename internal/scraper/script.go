package scraper

// Global is the window property the page-scoped scrape helper registers
// under. The liveness check and scrape requests are dispatched against it.
const Global = "__liScraper"

// Script is the page-scoped helper injected into the profile tab. It answers
// pings and, for scrape requests, walks the page downward in fixed increments
// to force lazy sections to render before handing back the document HTML.
// Installation is idempotent: a second injection is a no-op.
const Script = `(() => {
	if (window.__liScraper) {
		return;
	}
	const sleep = (ms) => new Promise((resolve) => setTimeout(resolve, ms));

	const loadLazySections = async () => {
		const step = 800;
		const maxSteps = 12;
		let lastY = -1;
		for (let i = 0; i < maxSteps; i++) {
			window.scrollBy(0, step);
			await sleep(250);
			if (window.scrollY === lastY) {
				break;
			}
			lastY = window.scrollY;
		}
		window.scrollTo(0, 0);
		await sleep(250);
	};

	window.__liScraper = {
		dispatch: async (msg) => {
			if (msg.kind === "ping") {
				return { ok: true, correlationId: msg.correlationId, payload: { ready: true } };
			}
			if (msg.kind === "scrape") {
				try {
					await loadLazySections();
					return {
						ok: true,
						correlationId: msg.correlationId,
						payload: {
							url: location.href,
							html: document.documentElement.outerHTML,
						},
					};
				} catch (err) {
					return { ok: false, correlationId: msg.correlationId, error: String(err) };
				}
			}
			return { ok: false, correlationId: msg.correlationId, error: "unsupported kind: " + msg.kind };
		},
	};
})();`
